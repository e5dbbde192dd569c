package midi

import "fmt"

// Kinds of TSEMeta commands, stored in Data1.
const (
	MetaTempo = iota
	MetaTimeSig
	MetaKeySig
	MetaMoveTo
)

// TempoCommand returns a tempo change in beats per minute.
func TempoCommand(bpm int) Command {
	return Command{Status: TSEMeta, Data1: MetaTempo, Data2: bpm}
}

// Tempo decodes a tempo change.
func (c Command) Tempo() (bpm int, ok bool) {
	if c.Status != TSEMeta || c.Data1 != MetaTempo {
		return 0, false
	}
	return c.Data2, true
}

// TimeSigCommand returns a time signature change of top/bottom.
func TimeSigCommand(top, bottom int) Command {
	return Command{Status: TSEMeta, Data1: MetaTimeSig, Data2: top<<8 | bottom&0xff}
}

// TimeSig decodes a time signature change.
func (c Command) TimeSig() (top, bottom int, ok bool) {
	if c.Status != TSEMeta || c.Data1 != MetaTimeSig {
		return 0, 0, false
	}
	return c.Data2 >> 8, c.Data2 & 0xff, true
}

// KeySigCommand returns a key signature change. Incidentals count sharps if
// positive and flats if negative.
func KeySigCommand(incidentals int, minor bool) Command {
	d := (incidentals + 7) << 1
	if minor {
		d |= 1
	}
	return Command{Status: TSEMeta, Data1: MetaKeySig, Data2: d}
}

// KeySig decodes a key signature change.
func (c Command) KeySig() (incidentals int, minor, ok bool) {
	if c.Status != TSEMeta || c.Data1 != MetaKeySig {
		return 0, false, false
	}
	return c.Data2>>1 - 7, c.Data2&1 != 0, true
}

// MoveToCommand returns a jump instruction. The destination is the OffTime of
// the carrying Event.
func MoveToCommand() Command {
	return Command{Status: TSEMeta, Data1: MetaMoveTo}
}

// IsMoveTo returns whether the command is a jump instruction.
func (c Command) IsMoveTo() bool {
	return c.Status == TSEMeta && c.Data1 == MetaMoveTo
}

func (c Command) metaString() string {
	if bpm, ok := c.Tempo(); ok {
		return fmt.Sprintf("Tempo(%d)", bpm)
	}
	if top, bottom, ok := c.TimeSig(); ok {
		return fmt.Sprintf("TimeSig(%d/%d)", top, bottom)
	}
	if inc, minor, ok := c.KeySig(); ok {
		return fmt.Sprintf("KeySig(%d minor=%v)", inc, minor)
	}
	if c.IsMoveTo() {
		return "MoveTo"
	}
	return fmt.Sprintf("TSEMeta(%d %d)", c.Data1, c.Data2)
}
