package seq

import (
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// AllChannels is the channel mask that lets every channel through.
const AllChannels = 0xffff

// Filter transforms the events of a Part or Track on their way out.
type Filter struct {
	status        bool
	channels      uint16
	channel       int
	port          int
	offset        midi.Clock
	timeScale     int
	quantise      midi.Clock
	minLength     midi.Clock
	maxLength     midi.Clock
	transpose     int
	minVelocity   int
	maxVelocity   int
	velocityScale int
	notifier      notify.Notifier[FilterChange]
}

// NewFilter returns a Filter that passes every event unchanged.
func NewFilter() *Filter {
	return &Filter{
		status:        true,
		channels:      AllChannels,
		channel:       -1,
		port:          -1,
		timeScale:     100,
		minLength:     -1,
		maxLength:     -1,
		maxVelocity:   127,
		velocityScale: 100,
	}
}

func (f *Filter) changed() {
	f.notifier.Notify(FilterChange{Filter: f})
}

// Subscribe registers fn to be called on every change.
func (f *Filter) Subscribe(fn func(FilterChange)) func() {
	return f.notifier.Subscribe(fn)
}

// Status returns whether events pass at all.
func (f *Filter) Status() bool { return f.status }

// SetStatus enables or disables the filter's output.
func (f *Filter) SetStatus(s bool) {
	f.status = s
	f.changed()
}

// ChannelEnabled returns whether events on ch pass.
func (f *Filter) ChannelEnabled(ch uint8) bool {
	return f.channels&(1<<(ch&0x0f)) != 0
}

// SetChannelEnabled lets events on ch pass or not.
func (f *Filter) SetChannelEnabled(ch uint8, enabled bool) {
	if enabled {
		f.channels |= 1 << (ch & 0x0f)
	} else {
		f.channels &^= 1 << (ch & 0x0f)
	}
	f.changed()
}

// Channel returns the channel events are moved to, or -1.
func (f *Filter) Channel() int { return f.channel }

// SetChannel moves every channel event to ch; -1 keeps the channel.
func (f *Filter) SetChannel(ch int) {
	if ch < -1 || ch > 15 {
		ch = -1
	}
	f.channel = ch
	f.changed()
}

// Port returns the port events are moved to, or -1.
func (f *Filter) Port() int { return f.port }

// SetPort moves every event to port; -1 keeps the port.
func (f *Filter) SetPort(port int) {
	if port < -1 {
		port = -1
	}
	f.port = port
	f.changed()
}

// Offset returns the time subtracted from every event.
func (f *Filter) Offset() midi.Clock { return f.offset }

// SetOffset sets the time subtracted from every event.
func (f *Filter) SetOffset(o midi.Clock) {
	f.offset = o
	f.changed()
}

// TimeScale returns the time scale in percent.
func (f *Filter) TimeScale() int { return f.timeScale }

// SetTimeScale sets the time scale in percent.
func (f *Filter) SetTimeScale(percent int) {
	if percent < 1 {
		percent = 1
	}
	f.timeScale = percent
	f.changed()
}

// Quantise returns the grid times are rounded to, or 0.
func (f *Filter) Quantise() midi.Clock { return f.quantise }

// SetQuantise sets the grid times are rounded to; 0 disables quantising.
func (f *Filter) SetQuantise(q midi.Clock) {
	if q < 0 {
		q = 0
	}
	f.quantise = q
	f.changed()
}

// Lengths returns the note length limits; -1 means no limit.
func (f *Filter) Lengths() (minLength, maxLength midi.Clock) {
	return f.minLength, f.maxLength
}

// SetLengths sets the note length limits; -1 means no limit.
func (f *Filter) SetLengths(minLength, maxLength midi.Clock) {
	f.minLength, f.maxLength = minLength, maxLength
	f.changed()
}

// Transpose returns the number of semitones notes are moved by.
func (f *Filter) Transpose() int { return f.transpose }

// SetTranspose sets the number of semitones notes are moved by.
func (f *Filter) SetTranspose(t int) {
	f.transpose = t
	f.changed()
}

// Velocities returns the velocity limits.
func (f *Filter) Velocities() (minVelocity, maxVelocity int) {
	return f.minVelocity, f.maxVelocity
}

// SetVelocities sets the velocity limits.
func (f *Filter) SetVelocities(minVelocity, maxVelocity int) {
	f.minVelocity, f.maxVelocity = clampData(minVelocity), clampData(maxVelocity)
	f.changed()
}

// VelocityScale returns the velocity scale in percent.
func (f *Filter) VelocityScale() int { return f.velocityScale }

// SetVelocityScale sets the velocity scale in percent.
func (f *Filter) SetVelocityScale(percent int) {
	if percent < 0 {
		percent = 0
	}
	f.velocityScale = percent
	f.changed()
}

// Filter returns e transformed. Events that must not be played come back
// with an Invalid status.
func (f *Filter) Filter(e midi.Event) midi.Event {
	if !f.status || (e.Data.Status.IsChannel() && !f.ChannelEnabled(e.Data.Channel)) {
		e.Data.Status = midi.Invalid
		return e
	}
	paired := e.Paired()
	if e.Data.Status.IsChannel() {
		if f.channel >= 0 {
			e.Data.Channel = uint8(f.channel)
			if paired {
				e.OffData.Channel = uint8(f.channel)
			}
		}
		if f.port >= 0 {
			e.Data.Port = f.port
			if paired {
				e.OffData.Port = f.port
			}
		}
	}

	e.Time = f.mapTime(e.Time)
	if paired {
		e.OffTime = f.mapTime(e.OffTime)
	}

	if !e.Data.IsNote() {
		return e
	}
	if f.transpose != 0 {
		n := e.Data.Data1 + f.transpose
		if n < 0 || n > 127 {
			e.Data.Status = midi.Invalid
			return e
		}
		e.Data.Data1 = n
		if paired {
			e.OffData.Data1 = n
		}
	}
	if paired {
		length := e.OffTime - e.Time
		if f.minLength >= 0 && length < f.minLength {
			length = f.minLength
		}
		if f.maxLength >= 0 && length > f.maxLength {
			length = f.maxLength
		}
		e.OffTime = e.Time + length
	}
	if e.Data.Status == midi.NoteOn {
		v := e.Data.Data2 * f.velocityScale / 100
		v = max(v, f.minVelocity)
		v = min(v, f.maxVelocity)
		e.Data.Data2 = clampData(v)
	}
	return e
}

func (f *Filter) mapTime(t midi.Clock) midi.Clock {
	t -= f.offset
	if f.timeScale != 100 {
		t = t * midi.Clock(f.timeScale) / 100
	}
	if f.quantise > 0 {
		q := f.quantise
		r := t % q
		if r < 0 {
			r += q
		}
		t -= r
		if 2*r >= q {
			t += q
		}
	}
	return t
}

// unmapTime returns a time no later than any t with mapTime(t) >= c.
func (f *Filter) unmapTime(c midi.Clock) midi.Clock {
	if f.quantise > 0 {
		c -= f.quantise / 2
	}
	if f.timeScale != 100 {
		c = floorDiv((c-1)*100, midi.Clock(f.timeScale))
	}
	return c + f.offset
}

func floorDiv(a, b midi.Clock) midi.Clock {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampData(v int) int {
	return max(0, min(v, 127))
}
