package seq

import (
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// Phrase is an immutable, titled list of events. Phrases are made by a
// PhraseEdit and live in a PhraseList.
type Phrase struct {
	MidiData
	title    string
	display  DisplayParams
	list     *PhraseList
	deleted  bool
	notifier notify.Notifier[PhraseChange]
}

// Title returns the phrase's title.
func (p *Phrase) Title() string {
	return p.title
}

// SetTitle renames the phrase. The title must be unique in the phrase's list.
func (p *Phrase) SetTitle(title string) error {
	if title == "" {
		return ErrInvalidPhraseName
	}
	if title == p.title {
		return nil
	}
	if p.list != nil {
		if other := p.list.Phrase(title); other != nil {
			return ErrPhraseNameExists
		}
	}
	p.title = title
	if p.list != nil {
		p.list.retitled(p)
	}
	p.notifier.Notify(PhraseChange{Phrase: p, Kind: TitleChanged})
	return nil
}

// List returns the PhraseList holding the phrase, or nil.
func (p *Phrase) List() *PhraseList {
	return p.list
}

// Display returns the phrase's display hints.
func (p *Phrase) Display() DisplayParams {
	return p.display
}

// SetDisplay sets the phrase's display hints.
func (p *Phrase) SetDisplay(d DisplayParams) {
	p.display = d
	p.notifier.Notify(PhraseChange{Phrase: p, Kind: DisplayChanged})
}

// Subscribe registers fn to be called on every change.
func (p *Phrase) Subscribe(fn func(PhraseChange)) func() {
	return p.notifier.Subscribe(fn)
}

// Iterator returns an Iterator over the phrase's events, starting at c. It
// is exhausted when the phrase is deleted.
func (p *Phrase) Iterator(c midi.Clock) Iterator {
	i := &dataIterator{data: &p.MidiData}
	if p.deleted {
		i.data = nil
	} else {
		i.unsub = p.Subscribe(func(ev PhraseChange) {
			if ev.Kind != Deleted {
				return
			}
			i.detach()
			i.changed()
		})
	}
	i.MoveTo(c)
	return i
}

func (p *Phrase) delete() {
	p.list = nil
	p.deleted = true
	p.notifier.Notify(PhraseChange{Phrase: p, Kind: Deleted})
}
