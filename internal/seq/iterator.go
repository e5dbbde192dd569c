package seq

import (
	"github.com/divVerent/midiseq/internal/midi"
)

// Iterator walks the events of a Playable in time order.
//
// Iterators follow the object they walk: when it changes, the iterator
// repositions itself at the time of the event it would have returned next,
// so a caller never sees a stale event after a mutation returns. Events at
// exactly that time may be returned twice.
type Iterator interface {
	// More returns whether Current holds an event.
	More() bool
	// Current returns the next event. It is only meaningful if More is true.
	Current() midi.Event
	// Next advances to the following event.
	Next()
	// MoveTo repositions the iterator at the first event at or after c.
	MoveTo(c midi.Clock)
	// Close releases the iterator's subscriptions. The iterator is
	// exhausted afterwards.
	Close()
}

// Playable is anything that can produce a stream of events.
type Playable interface {
	Iterator(start midi.Clock) Iterator
	LastClock() midi.Clock
}

// watcher is implemented by the iterators of this package. A parent iterator
// uses it to learn that a child repositioned itself.
type watcher interface {
	setOnChange(fn func())
}

// iterState holds the state every iterator shares.
type iterState struct {
	more     bool
	next     midi.Event
	pos      midi.Clock
	onChange func()
}

func (s *iterState) More() bool {
	return s.more
}

func (s *iterState) Current() midi.Event {
	return s.next
}

func (s *iterState) emit(e midi.Event) {
	s.more = true
	s.next = e
	s.pos = e.Time
}

// finish marks the iterator exhausted. An iterator that runs out after an
// event repositions just past it, so a later reseek does not repeat it.
func (s *iterState) finish() {
	if s.more {
		s.pos = s.next.Time + 1
	}
	s.more = false
	s.next = midi.Event{}
}

func (s *iterState) seek(c midi.Clock) {
	s.more = false
	s.next = midi.Event{}
	s.pos = c
}

func (s *iterState) setOnChange(fn func()) {
	s.onChange = fn
}

func (s *iterState) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func watch(it Iterator, fn func()) {
	if w, ok := it.(watcher); ok {
		w.setOnChange(fn)
	}
}

// merger picks the earliest event among several iterators. On equal times
// the source added first wins.
type merger struct {
	sources []Iterator
	winner  int
}

func (m *merger) add(it Iterator, onChange func()) {
	watch(it, onChange)
	m.sources = append(m.sources, it)
}

// pick selects the source holding the earliest event.
func (m *merger) pick() bool {
	m.winner = -1
	var best midi.Clock
	for i, it := range m.sources {
		if !it.More() {
			continue
		}
		if t := it.Current().Time; m.winner < 0 || t < best {
			m.winner, best = i, t
		}
	}
	return m.winner >= 0
}

// advance moves the source that produced the last event past it.
func (m *merger) advance() {
	if m.winner >= 0 && m.winner < len(m.sources) && m.sources[m.winner].More() {
		m.sources[m.winner].Next()
	}
}

func (m *merger) current() midi.Event {
	return m.sources[m.winner].Current()
}

func (m *merger) moveTo(c midi.Clock) {
	for _, it := range m.sources {
		it.MoveTo(c)
	}
}

func (m *merger) close() {
	for _, it := range m.sources {
		it.Close()
	}
	m.sources = nil
	m.winner = -1
}

type mergeIterator struct {
	iterState
	m merger
}

// Merge returns an Iterator producing the events of all sources in time
// order. On equal times, earlier arguments come first. Closing the result
// closes the sources.
func Merge(sources ...Iterator) Iterator {
	i := &mergeIterator{}
	for _, it := range sources {
		i.m.add(it, i.refresh)
	}
	i.update()
	return i
}

func (i *mergeIterator) update() {
	if !i.m.pick() {
		i.finish()
		return
	}
	i.emit(i.m.current())
}

func (i *mergeIterator) refresh() {
	i.update()
	i.changed()
}

func (i *mergeIterator) Next() {
	i.m.advance()
	i.update()
}

func (i *mergeIterator) MoveTo(c midi.Clock) {
	i.m.moveTo(c)
	i.update()
}

func (i *mergeIterator) Close() {
	i.m.close()
	i.finish()
}

// Collect drains it, closes it and returns the events it produced. Events
// at or after end are not returned; an end below zero means no limit.
func Collect(it Iterator, end midi.Clock) []midi.Event {
	defer it.Close()
	var out []midi.Event
	for ; it.More(); it.Next() {
		e := it.Current()
		if end >= 0 && e.Time >= end {
			break
		}
		out = append(out, e)
	}
	return out
}
