package seq

import (
	"sort"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// PhraseEdit is a mutable event buffer used to capture and edit events
// before turning them into a Phrase.
//
// It tracks the first and last selected event incrementally. Erasing a
// boundary of the selection rescans the events in between.
type PhraseEdit struct {
	MidiData
	hint     int
	selFirst int
	selLast  int
	modified bool
	notifier notify.Notifier[PhraseEditChange]
}

// NewPhraseEdit returns an empty PhraseEdit.
func NewPhraseEdit() *PhraseEdit {
	return &PhraseEdit{selFirst: -1, selLast: -1}
}

// Reset replaces the contents with a copy of src, or empties the buffer if
// src is nil. The modified flag is cleared.
func (pe *PhraseEdit) Reset(src *MidiData) {
	pe.events = nil
	if src != nil {
		pe.events = src.Events()
	}
	pe.hint = 0
	pe.modified = false
	pe.rescanSelection()
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: Reset, Index: -1})
}

// Insert adds e after all events at the same time and returns its index.
func (pe *PhraseEdit) Insert(e midi.Event) int {
	i := pe.insertPos(e.Time)
	pe.events = append(pe.events, midi.Event{})
	copy(pe.events[i+1:], pe.events[i:])
	pe.events[i] = e
	pe.hint = i + 1

	if pe.selFirst >= i {
		pe.selFirst++
	}
	if pe.selLast >= i {
		pe.selLast++
	}
	if e.Data.Selected {
		pe.addToSelection(i)
	}
	pe.setModified(true)
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: Inserted, Index: i})
	return i
}

// insertPos returns the index after the last event at or before t. Appending
// in time order finds the spot at the hint without searching.
func (pe *PhraseEdit) insertPos(t midi.Clock) int {
	n := len(pe.events)
	h := pe.hint
	if h > n {
		h = n
	}
	if (h == 0 || pe.events[h-1].Time <= t) && (h == n || pe.events[h].Time > t) {
		return h
	}
	return sort.Search(n, func(i int) bool {
		return pe.events[i].Time > t
	})
}

// Erase removes the event at index i.
func (pe *PhraseEdit) Erase(i int) {
	if i < 0 || i >= len(pe.events) {
		return
	}
	wasSelected := pe.events[i].Data.Selected
	pe.events = append(pe.events[:i], pe.events[i+1:]...)
	if pe.hint > i {
		pe.hint--
	}

	switch {
	case !wasSelected:
		if pe.selFirst > i {
			pe.selFirst--
		}
		if pe.selLast > i {
			pe.selLast--
		}
	case pe.selFirst == i && pe.selLast == i:
		pe.selFirst, pe.selLast = -1, -1
	case pe.selFirst == i:
		pe.selLast--
		pe.selFirst = pe.scanSelected(i, pe.selLast)
	case pe.selLast == i:
		pe.selLast = pe.scanSelectedBack(i-1, pe.selFirst)
	default:
		pe.selLast--
	}
	pe.setModified(true)
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: Erased, Index: i})
}

// EraseEvent removes the first event equal to e. It returns whether one was
// found.
func (pe *PhraseEdit) EraseEvent(e midi.Event) bool {
	for i := pe.Index(e.Time); i < len(pe.events) && pe.events[i].Time == e.Time; i++ {
		if pe.events[i] == e {
			pe.Erase(i)
			return true
		}
	}
	return false
}

func (pe *PhraseEdit) scanSelected(from, to int) int {
	for i := from; i <= to && i < len(pe.events); i++ {
		if pe.events[i].Data.Selected {
			return i
		}
	}
	return -1
}

func (pe *PhraseEdit) scanSelectedBack(from, to int) int {
	for i := from; i >= to && i >= 0; i-- {
		if pe.events[i].Data.Selected {
			return i
		}
	}
	return -1
}

func (pe *PhraseEdit) addToSelection(i int) {
	if pe.selFirst < 0 || i < pe.selFirst {
		pe.selFirst = i
	}
	if pe.selLast < 0 || i > pe.selLast {
		pe.selLast = i
	}
}

func (pe *PhraseEdit) rescanSelection() {
	pe.selFirst = pe.scanSelected(0, len(pe.events)-1)
	pe.selLast = pe.scanSelectedBack(len(pe.events)-1, 0)
}

// Selection returns the indexes of the first and last selected events.
func (pe *PhraseEdit) Selection() (first, last int, ok bool) {
	return pe.selFirst, pe.selLast, pe.selFirst >= 0
}

// Select marks the event at index i as selected.
func (pe *PhraseEdit) Select(i int) {
	if i < 0 || i >= len(pe.events) || pe.events[i].Data.Selected {
		return
	}
	pe.events[i].Data.Selected = true
	pe.addToSelection(i)
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: SelectionChanged, Index: i})
}

// Deselect clears the selection mark of the event at index i.
func (pe *PhraseEdit) Deselect(i int) {
	if i < 0 || i >= len(pe.events) || !pe.events[i].Data.Selected {
		return
	}
	pe.events[i].Data.Selected = false
	if i == pe.selFirst || i == pe.selLast {
		pe.rescanSelection()
	}
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: SelectionChanged, Index: i})
}

// SelectRange selects every event with from <= time < to.
func (pe *PhraseEdit) SelectRange(from, to midi.Clock) {
	for i := pe.Index(from); i < len(pe.events) && pe.events[i].Time < to; i++ {
		pe.events[i].Data.Selected = true
	}
	pe.rescanSelection()
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: SelectionChanged, Index: -1})
}

// SelectAll selects every event.
func (pe *PhraseEdit) SelectAll() {
	pe.setAllSelected(func(bool) bool { return true })
}

// SelectNone clears every selection mark.
func (pe *PhraseEdit) SelectNone() {
	pe.setAllSelected(func(bool) bool { return false })
}

// InvertSelection flips every selection mark.
func (pe *PhraseEdit) InvertSelection() {
	pe.setAllSelected(func(s bool) bool { return !s })
}

func (pe *PhraseEdit) setAllSelected(f func(bool) bool) {
	for i := range pe.events {
		pe.events[i].Data.Selected = f(pe.events[i].Data.Selected)
	}
	pe.rescanSelection()
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: SelectionChanged, Index: -1})
}

// Modified returns whether the buffer changed since the last Reset or
// SetModified(false).
func (pe *PhraseEdit) Modified() bool {
	return pe.modified
}

// SetModified sets the modified flag.
func (pe *PhraseEdit) SetModified(m bool) {
	pe.setModified(m)
}

func (pe *PhraseEdit) setModified(m bool) {
	if pe.modified == m {
		return
	}
	pe.modified = m
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: ModifiedChanged, Index: -1})
}

// CreatePhrase copies the events into a new Phrase and inserts it into list.
// An empty title is replaced by a generated one.
func (pe *PhraseEdit) CreatePhrase(list *PhraseList, title string) (*Phrase, error) {
	if title == "" {
		title = list.NewPhraseTitle(DefaultPhraseTitle)
	}
	p := &Phrase{title: title}
	p.events = pe.Events()
	for i := range p.events {
		p.events[i].Data.Selected = false
		p.events[i].OffData.Selected = false
	}
	if err := list.Insert(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Subscribe registers fn to be called on every change.
func (pe *PhraseEdit) Subscribe(fn func(PhraseEditChange)) func() {
	return pe.notifier.Subscribe(fn)
}

// Iterator returns an Iterator over the buffer, starting at c.
func (pe *PhraseEdit) Iterator(c midi.Clock) Iterator {
	i := &dataIterator{data: &pe.MidiData}
	i.unsub = pe.Subscribe(func(ev PhraseEditChange) {
		switch ev.Kind {
		case SelectionChanged, ModifiedChanged:
			return
		}
		i.MoveTo(i.pos)
		i.changed()
	})
	i.MoveTo(c)
	return i
}
