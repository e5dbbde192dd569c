package midi

import "fmt"

// Status is the kind of a Command. Channel message kinds use the upper
// nibble of the MIDI status byte.
type Status uint8

const (
	// Invalid marks "no event". Filters and solo muting use it to suppress
	// events without removing them from a stream.
	Invalid Status = 0x0
	// TSEMeta is a sequencer-private meta event (tempo, time signature, key
	// signature, move-to). It never goes out to a device.
	TSEMeta         Status = 0x1
	NoteOff         Status = 0x8
	NoteOn          Status = 0x9
	KeyPressure     Status = 0xa
	ControlChange   Status = 0xb
	ProgramChange   Status = 0xc
	ChannelPressure Status = 0xd
	PitchBend       Status = 0xe
	System          Status = 0xf
)

var statusNames = map[Status]string{
	Invalid:         "Invalid",
	TSEMeta:         "TSEMeta",
	NoteOff:         "NoteOff",
	NoteOn:          "NoteOn",
	KeyPressure:     "KeyPressure",
	ControlChange:   "ControlChange",
	ProgramChange:   "ProgramChange",
	ChannelPressure: "ChannelPressure",
	PitchBend:       "PitchBend",
	System:          "System",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%#x)", uint8(s))
}

// IsChannel returns whether the status is a channel voice message.
func (s Status) IsChannel() bool {
	return s >= NoteOff && s < System
}

// DataBytes returns how many data bytes follow a channel message of this
// status on the wire.
func (s Status) DataBytes() int {
	switch s {
	case ProgramChange, ChannelPressure:
		return 1
	case NoteOff, NoteOn, KeyPressure, ControlChange, PitchBend:
		return 2
	}
	return 0
}

// Controller numbers the engine interprets.
const (
	BankSelectMSB = 0x00
	Volume        = 0x07
	Pan           = 0x0a
	BankSelectLSB = 0x20
	SustainPedal  = 0x40
	Reverb        = 0x5b
	Chorus        = 0x5d
	AllNotesOff   = 0x7b
)

// Command is a single MIDI message.
type Command struct {
	Status  Status
	Channel uint8
	Port    int
	Data1   int
	Data2   int

	// Selected is used by editors to mark events; it is not part of the
	// message.
	Selected bool
}

// NewCommand returns a Command.
func NewCommand(status Status, channel uint8, port int, data1, data2 int) Command {
	return Command{
		Status:  status,
		Channel: channel & 0x0f,
		Port:    port,
		Data1:   data1,
		Data2:   data2,
	}
}

// IsValid returns whether the command is anything but Invalid.
func (c Command) IsValid() bool {
	return c.Status != Invalid
}

// IsNote returns whether the command is a NoteOn or NoteOff.
func (c Command) IsNote() bool {
	return c.Status == NoteOn || c.Status == NoteOff
}

// IsSustain returns whether the command is a sustain pedal change, and if so
// whether the pedal is down.
func (c Command) IsSustain() (isSustain, down bool) {
	if c.Status != ControlChange || c.Data1 != SustainPedal {
		return false, false
	}
	return true, c.Data2 >= 0x40
}

// StatusByte returns the status byte this command has on the wire, or 0 if it
// has none.
func (c Command) StatusByte() byte {
	if !c.Status.IsChannel() {
		return 0
	}
	return byte(c.Status)<<4 | c.Channel&0x0f
}

func (c Command) String() string {
	switch {
	case c.Status == TSEMeta:
		return c.metaString()
	case c.Status.IsChannel():
		return fmt.Sprintf("%v(ch=%d port=%d %d %d)", c.Status, c.Channel, c.Port, c.Data1, c.Data2)
	}
	return c.Status.String()
}

// DecodeChannelMessage builds a Command from a channel message status byte
// and its data bytes. It returns false if status is not a channel message.
func DecodeChannelMessage(status byte, data1, data2 byte, port int) (Command, bool) {
	s := Status(status >> 4)
	if !s.IsChannel() {
		return Command{}, false
	}
	c := NewCommand(s, status&0x0f, port, int(data1&0x7f), int(data2&0x7f))
	if s.DataBytes() == 1 {
		c.Data2 = 0
	}
	return c, true
}
