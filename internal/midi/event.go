package midi

import "fmt"

// Event is a Command at a time. A NoteOn event additionally carries its
// matching NoteOff and the time of it.
type Event struct {
	Time    Clock
	Data    Command
	OffTime Clock
	OffData Command
}

// NewEvent returns an Event without a paired note-off.
func NewEvent(cmd Command, t Clock) Event {
	return Event{Time: t, Data: cmd}
}

// NewNote returns a NoteOn event paired with its NoteOff.
func NewNote(on Command, t Clock, off Command, offTime Clock) Event {
	return Event{Time: t, Data: on, OffTime: offTime, OffData: off}
}

// Paired returns whether the event is a NoteOn carrying its NoteOff.
func (e Event) Paired() bool {
	return e.Data.Status == NoteOn && e.OffData.Status == NoteOff
}

// Shift moves the event, and its note-off if paired, by d.
func (e Event) Shift(d Clock) Event {
	e.Time += d
	if e.Paired() {
		e.OffTime += d
	}
	return e
}

// Length returns the note length of a paired event, else 0.
func (e Event) Length() Clock {
	if !e.Paired() {
		return 0
	}
	return e.OffTime - e.Time
}

func (e Event) String() string {
	if e.Paired() {
		return fmt.Sprintf("%v@%v-%v", e.Data, e.Time, e.OffTime)
	}
	return fmt.Sprintf("%v@%v", e.Data, e.Time)
}
