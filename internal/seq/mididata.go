package seq

import (
	"sort"

	"github.com/divVerent/midiseq/internal/midi"
)

// MidiData is a time-sorted list of events.
type MidiData struct {
	events []midi.Event
}

// Size returns the number of events.
func (d *MidiData) Size() int {
	return len(d.events)
}

// At returns the event at index i.
func (d *MidiData) At(i int) midi.Event {
	return d.events[i]
}

// Events returns a copy of the events.
func (d *MidiData) Events() []midi.Event {
	return append([]midi.Event(nil), d.events...)
}

// Index returns the index of the first event at or after c, or Size if there
// is none.
func (d *MidiData) Index(c midi.Clock) int {
	return sort.Search(len(d.events), func(i int) bool {
		return d.events[i].Time >= c
	})
}

// LastClock returns the time of the last event, or 0.
func (d *MidiData) LastClock() midi.Clock {
	if len(d.events) == 0 {
		return 0
	}
	return d.events[len(d.events)-1].Time
}

// dataIterator walks a MidiData by index.
type dataIterator struct {
	iterState
	data  *MidiData
	idx   int
	unsub func()
}

func (i *dataIterator) update() {
	if i.data == nil || i.idx >= len(i.data.events) {
		i.finish()
		return
	}
	i.emit(i.data.events[i.idx])
}

func (i *dataIterator) Next() {
	i.idx++
	i.update()
}

func (i *dataIterator) MoveTo(c midi.Clock) {
	i.seek(c)
	if i.data != nil {
		i.idx = i.data.Index(c)
	}
	i.update()
}

// detach ends the iteration for good.
func (i *dataIterator) detach() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.data = nil
	i.finish()
}

func (i *dataIterator) Close() {
	i.detach()
}
