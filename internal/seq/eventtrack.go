package seq

import (
	"sort"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// Timed is a value placed at a time.
type Timed[T any] struct {
	Time  midi.Clock
	Value T
}

// EventTrack is a time-sorted list of values. Values inserted at the same
// time keep their insertion order, unless the track is unique, in which case
// a value inserted at an occupied time replaces the one already there.
type EventTrack[T any] struct {
	data     []Timed[T]
	unique   bool
	status   bool
	notifier notify.Notifier[EventTrackChange]
}

// Size returns the number of elements.
func (t *EventTrack[T]) Size() int {
	return len(t.data)
}

// At returns the element at index i.
func (t *EventTrack[T]) At(i int) Timed[T] {
	return t.data[i]
}

// Index returns the index of the first element at or after c, or Size if
// there is none.
func (t *EventTrack[T]) Index(c midi.Clock) int {
	return sort.Search(len(t.data), func(i int) bool {
		return t.data[i].Time >= c
	})
}

// Insert adds v at time c and returns its index.
func (t *EventTrack[T]) Insert(v T, c midi.Clock) int {
	i := sort.Search(len(t.data), func(i int) bool {
		return t.data[i].Time > c
	})
	if t.unique && i > 0 && t.data[i-1].Time == c {
		t.data[i-1].Value = v
		t.notifier.Notify(EventTrackChange{Kind: Altered, Index: i - 1})
		return i - 1
	}
	t.data = append(t.data, Timed[T]{})
	copy(t.data[i+1:], t.data[i:])
	t.data[i] = Timed[T]{Time: c, Value: v}
	t.notifier.Notify(EventTrackChange{Kind: Inserted, Index: i})
	return i
}

// Erase removes the element at index i.
func (t *EventTrack[T]) Erase(i int) {
	if i < 0 || i >= len(t.data) {
		return
	}
	t.data = append(t.data[:i], t.data[i+1:]...)
	t.notifier.Notify(EventTrackChange{Kind: Erased, Index: i})
}

// Clear removes all elements.
func (t *EventTrack[T]) Clear() {
	for len(t.data) > 0 {
		t.Erase(len(t.data) - 1)
	}
}

// ValueAt returns the value in effect at c: the last one at or before it.
func (t *EventTrack[T]) ValueAt(c midi.Clock) (T, bool) {
	i := sort.Search(len(t.data), func(i int) bool {
		return t.data[i].Time > c
	})
	if i == 0 {
		var zero T
		return zero, false
	}
	return t.data[i-1].Value, true
}

// LastClock returns the time of the last element, or 0.
func (t *EventTrack[T]) LastClock() midi.Clock {
	if len(t.data) == 0 {
		return 0
	}
	return t.data[len(t.data)-1].Time
}

// Status returns whether the track takes part in playback.
func (t *EventTrack[T]) Status() bool {
	return t.status
}

// SetStatus enables or disables the track for playback.
func (t *EventTrack[T]) SetStatus(s bool) {
	if t.status == s {
		return
	}
	t.status = s
	t.notifier.Notify(EventTrackChange{Kind: StatusChanged, Index: -1})
}

// Subscribe registers fn to be called on every change.
func (t *EventTrack[T]) Subscribe(fn func(EventTrackChange)) func() {
	return t.notifier.Subscribe(fn)
}

type eventTrackIterator[T any] struct {
	iterState
	track *EventTrack[T]
	conv  func(T) midi.Command
	idx   int
	unsub func()
}

func newEventTrackIterator[T any](t *EventTrack[T], c midi.Clock, conv func(T) midi.Command) *eventTrackIterator[T] {
	i := &eventTrackIterator[T]{track: t, conv: conv}
	i.unsub = t.Subscribe(func(EventTrackChange) {
		i.MoveTo(i.pos)
		i.changed()
	})
	i.MoveTo(c)
	return i
}

func (i *eventTrackIterator[T]) update() {
	if i.track == nil || !i.track.status || i.idx >= len(i.track.data) {
		i.finish()
		return
	}
	d := i.track.data[i.idx]
	i.emit(midi.NewEvent(i.conv(d.Value), d.Time))
}

func (i *eventTrackIterator[T]) Next() {
	i.idx++
	i.update()
}

func (i *eventTrackIterator[T]) MoveTo(c midi.Clock) {
	i.seek(c)
	if i.track != nil {
		i.idx = i.track.Index(c)
	}
	i.update()
}

func (i *eventTrackIterator[T]) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.track = nil
	i.finish()
}
