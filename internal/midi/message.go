package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message returns the wire form of a channel command, or nil for commands
// that never go to a device (Invalid, TSEMeta, System).
func (c Command) Message() gomidi.Message {
	ch := c.Channel & 0x0f
	d1 := uint8(c.Data1 & 0x7f)
	d2 := uint8(c.Data2 & 0x7f)
	switch c.Status {
	case NoteOn:
		return gomidi.NoteOn(ch, d1, d2)
	case NoteOff:
		return gomidi.NoteOffVelocity(ch, d1, d2)
	case KeyPressure:
		return gomidi.PolyAfterTouch(ch, d1, d2)
	case ControlChange:
		return gomidi.ControlChange(ch, d1, d2)
	case ProgramChange:
		return gomidi.ProgramChange(ch, d1)
	case ChannelPressure:
		return gomidi.AfterTouch(ch, d1)
	case PitchBend:
		return gomidi.Pitchbend(ch, int16(int(d2)<<7|int(d1))-8192)
	}
	return nil
}

// CommandFromMessage decodes a channel message received on port. Anything
// else decodes to an Invalid command.
func CommandFromMessage(msg gomidi.Message, port int) Command {
	b := msg.Bytes()
	if len(b) == 0 {
		return Command{}
	}
	var d1, d2 byte
	if len(b) > 1 {
		d1 = b[1]
	}
	if len(b) > 2 {
		d2 = b[2]
	}
	c, ok := DecodeChannelMessage(b[0], d1, d2, port)
	if !ok {
		return Command{}
	}
	return c
}
