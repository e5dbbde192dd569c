package seq

import (
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// Special Params values.
const (
	// ParamOff leaves the setting alone.
	ParamOff = -1
	// ParamForceNone strips every event that would change the setting.
	ParamForceNone = -2
)

// Param selects one of the settings held by a Params.
type Param int

const (
	BankMSB Param = iota
	BankLSB
	Program
	Pan
	Reverb
	Chorus
	Volume
	numParams
)

var paramNames = [numParams]string{"bank_msb", "bank_lsb", "program", "pan", "reverb", "chorus", "volume"}

func (p Param) String() string {
	if p >= 0 && p < numParams {
		return paramNames[p]
	}
	return "unknown"
}

// ParamByName returns the Param called name.
func ParamByName(name string) (Param, bool) {
	for i, n := range paramNames {
		if n == name {
			return Param(i), true
		}
	}
	return 0, false
}

// controller returns the control change that sets p, or -1 for Program.
func (p Param) controller() int {
	switch p {
	case BankMSB:
		return midi.BankSelectMSB
	case BankLSB:
		return midi.BankSelectLSB
	case Pan:
		return midi.Pan
	case Reverb:
		return midi.Reverb
	case Chorus:
		return midi.Chorus
	case Volume:
		return midi.Volume
	}
	return -1
}

// Params are the channel settings sent when playback of a Part or Track
// starts. Every setting is a value from 0 to 127, ParamOff or
// ParamForceNone.
type Params struct {
	values   [numParams]int
	notifier notify.Notifier[ParamsChange]
}

// NewParams returns Params with every setting off.
func NewParams() *Params {
	p := &Params{}
	for i := range p.values {
		p.values[i] = ParamOff
	}
	return p
}

// Get returns a setting.
func (p *Params) Get(which Param) int {
	return p.values[which]
}

// Set changes a setting. Out of range values are clamped.
func (p *Params) Set(which Param, v int) {
	switch {
	case v < ParamForceNone:
		v = ParamForceNone
	case v > 127:
		v = 127
	}
	if p.values[which] == v {
		return
	}
	p.values[which] = v
	p.notifier.Notify(ParamsChange{Params: p})
}

// Subscribe registers fn to be called on every change.
func (p *Params) Subscribe(fn func(ParamsChange)) func() {
	return p.notifier.Subscribe(fn)
}

// command returns the event setting which, on channel 0.
func (p *Params) command(which Param) midi.Command {
	if which == Program {
		return midi.NewCommand(midi.ProgramChange, 0, 0, p.values[which], 0)
	}
	return midi.NewCommand(midi.ControlChange, 0, 0, which.controller(), p.values[which])
}

// Filter marks e Invalid if it changes a setting that is ParamForceNone.
func (p *Params) Filter(e midi.Event) midi.Event {
	var which Param
	switch e.Data.Status {
	case midi.ProgramChange:
		which = Program
	case midi.ControlChange:
		found := false
		for w := Param(0); w < numParams; w++ {
			if w != Program && w.controller() == e.Data.Data1 {
				which, found = w, true
				break
			}
		}
		if !found {
			return e
		}
	default:
		return e
	}
	if p.values[which] == ParamForceNone {
		e.Data.Status = midi.Invalid
	}
	return e
}

// Iterator returns an Iterator producing the setup events, all at c.
func (p *Params) Iterator(c midi.Clock) Iterator {
	i := &paramsIterator{params: p}
	i.unsub = p.Subscribe(func(ParamsChange) {
		i.MoveTo(i.pos)
		i.changed()
	})
	i.MoveTo(c)
	return i
}

type paramsIterator struct {
	iterState
	params *Params
	which  Param
	unsub  func()
}

func (i *paramsIterator) update() {
	for i.params != nil && i.which < numParams {
		if i.params.values[i.which] >= 0 {
			i.emit(midi.NewEvent(i.params.command(i.which), i.pos))
			return
		}
		i.which++
	}
	i.finish()
}

func (i *paramsIterator) Next() {
	i.which++
	i.update()
}

func (i *paramsIterator) MoveTo(c midi.Clock) {
	i.seek(c)
	i.which = 0
	i.update()
}

func (i *paramsIterator) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.params = nil
	i.finish()
}
