package seq

import (
	"time"

	"github.com/divVerent/midiseq/internal/midi"
)

// Defaults of the meta tracks of a new Song.
const (
	DefaultTempo       = 120
	DefaultTimeSigTop  = 4
	DefaultTimeSigBase = 4
)

// Tempo is a tempo change in beats per minute.
type Tempo struct {
	BPM int
}

// TimeSig is a time signature change.
type TimeSig struct {
	Top    int
	Bottom int
}

// KeySig is a key signature change. Incidentals counts sharps when positive
// and flats when negative.
type KeySig struct {
	Incidentals int
	Minor       bool
}

// Flag marks a position in the song.
type Flag struct {
	Title string
}

// TempoTrack holds the tempo changes of a Song.
type TempoTrack struct {
	EventTrack[Tempo]
}

// NewTempoTrack returns a TempoTrack holding the default tempo at 0.
func NewTempoTrack() *TempoTrack {
	t := &TempoTrack{EventTrack[Tempo]{unique: true, status: true}}
	t.Insert(Tempo{BPM: DefaultTempo}, 0)
	return t
}

// TempoAt returns the tempo in effect at c.
func (t *TempoTrack) TempoAt(c midi.Clock) int {
	if v, ok := t.ValueAt(c); ok {
		return v.BPM
	}
	return DefaultTempo
}

// Duration returns the wall time from 0 to c under this tempo map. A
// disabled track plays everything at DefaultTempo.
func (t *TempoTrack) Duration(c midi.Clock) time.Duration {
	if !t.Status() {
		return TicksDuration(c, DefaultTempo)
	}
	var d time.Duration
	last, bpm := midi.Clock(0), DefaultTempo
	for i := 0; i < t.Size(); i++ {
		e := t.At(i)
		if e.Time >= c {
			break
		}
		d += TicksDuration(e.Time-last, bpm)
		last, bpm = e.Time, e.Value.BPM
	}
	return d + TicksDuration(c-last, bpm)
}

// TicksDuration returns how long n ticks last at bpm.
func TicksDuration(n midi.Clock, bpm int) time.Duration {
	if bpm <= 0 {
		bpm = DefaultTempo
	}
	return time.Duration(n) * time.Minute / time.Duration(bpm*midi.PPQN)
}

// Iterator returns an Iterator producing tempo meta events.
func (t *TempoTrack) Iterator(c midi.Clock) Iterator {
	return newEventTrackIterator(&t.EventTrack, c, func(v Tempo) midi.Command {
		return midi.TempoCommand(v.BPM)
	})
}

// TimeSigTrack holds the time signature changes of a Song.
type TimeSigTrack struct {
	EventTrack[TimeSig]
}

// NewTimeSigTrack returns a TimeSigTrack holding 4/4 at 0.
func NewTimeSigTrack() *TimeSigTrack {
	t := &TimeSigTrack{EventTrack[TimeSig]{unique: true, status: true}}
	t.Insert(TimeSig{Top: DefaultTimeSigTop, Bottom: DefaultTimeSigBase}, 0)
	return t
}

// Iterator returns an Iterator producing time signature meta events.
func (t *TimeSigTrack) Iterator(c midi.Clock) Iterator {
	return newEventTrackIterator(&t.EventTrack, c, func(v TimeSig) midi.Command {
		return midi.TimeSigCommand(v.Top, v.Bottom)
	})
}

// KeySigTrack holds the key signature changes of a Song.
type KeySigTrack struct {
	EventTrack[KeySig]
}

// NewKeySigTrack returns a KeySigTrack holding C major at 0.
func NewKeySigTrack() *KeySigTrack {
	t := &KeySigTrack{EventTrack[KeySig]{unique: true, status: true}}
	t.Insert(KeySig{}, 0)
	return t
}

// Iterator returns an Iterator producing key signature meta events.
func (t *KeySigTrack) Iterator(c midi.Clock) Iterator {
	return newEventTrackIterator(&t.EventTrack, c, func(v KeySig) midi.Command {
		return midi.KeySigCommand(v.Incidentals, v.Minor)
	})
}

// FlagTrack holds named markers. It is not played.
type FlagTrack struct {
	EventTrack[Flag]
}

// NewFlagTrack returns an empty FlagTrack.
func NewFlagTrack() *FlagTrack {
	return &FlagTrack{EventTrack[Flag]{status: true}}
}
