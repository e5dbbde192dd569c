package seq

import (
	"sort"

	"github.com/divVerent/midiseq/internal/midi"
)

type noteKey struct {
	channel uint8
	note    int
}

// Tidy turns a raw capture into a sorted list in which every NoteOn carries
// its NoteOff. Notes left open end at endTime; a negative endTime means the
// time of the last event.
//
// Sustain pedal presses are folded into the notes they hold: every NoteOff
// released while the pedal is down on its channel moves to the pedal
// release. The pedal events themselves are removed. Tidying a tidy buffer
// changes nothing.
func (pe *PhraseEdit) Tidy(endTime midi.Clock) {
	ev := pe.events
	sortEvents(ev)
	for i := range ev {
		if ev[i].Time < 0 {
			ev[i].Time = 0
		}
		if ev[i].Paired() && ev[i].OffTime < ev[i].Time {
			ev[i].OffTime = ev[i].Time
		}
		if ev[i].Data.Status == midi.NoteOn && ev[i].Data.Data2 == 0 && !ev[i].Paired() {
			ev[i].Data.Status = midi.NoteOff
			ev[i].OffData = midi.Command{}
			ev[i].OffTime = 0
		}
	}
	if endTime < 0 && len(ev) > 0 {
		endTime = ev[len(ev)-1].Time
	}

	ev = tidySustain(ev, endTime)
	ev = tidyPairs(ev, endTime)

	pe.events = ev
	pe.hint = 0
	pe.rescanSelection()
	pe.modified = true
	pe.notifier.Notify(PhraseEditChange{Edit: pe, Kind: Tidied, Index: -1})
}

func sortEvents(ev []midi.Event) {
	sort.SliceStable(ev, func(i, j int) bool {
		return ev[i].Time < ev[j].Time
	})
}

func tidySustain(ev []midi.Event, endTime midi.Clock) []midi.Event {
	hasPedal := false
	for i := len(ev) - 1; i >= 0; i-- {
		isSustain, down := ev[i].Data.IsSustain()
		if !isSustain {
			continue
		}
		hasPedal = true
		if !down {
			continue
		}
		ch := ev[i].Data.Channel
		downTime := ev[i].Time
		upTime := midi.Max(endTime, downTime)
		for j := i + 1; j < len(ev); j++ {
			if s, d := ev[j].Data.IsSustain(); s && !d && ev[j].Data.Channel == ch {
				upTime = ev[j].Time
				break
			}
		}
		for k := range ev {
			if ev[k].Time > upTime || ev[k].Data.Channel != ch {
				continue
			}
			switch {
			case k > i && ev[k].Data.Status == midi.NoteOff:
				ev[k].Time = upTime
			case ev[k].Paired() && ev[k].OffTime >= downTime && ev[k].OffTime < upTime:
				ev[k].OffTime = upTime
			}
		}
	}
	if !hasPedal {
		return ev
	}
	out := ev[:0]
	for _, e := range ev {
		if s, _ := e.Data.IsSustain(); s {
			continue
		}
		out = append(out, e)
	}
	sortEvents(out)
	return out
}

func tidyPairs(ev []midi.Event, endTime midi.Clock) []midi.Event {
	open := map[noteKey][]int{}
	drop := make([]bool, len(ev))
	for i, e := range ev {
		switch {
		case e.Data.Status == midi.NoteOn && !e.Paired():
			k := noteKey{e.Data.Channel, e.Data.Data1}
			open[k] = append(open[k], i)
		case e.Data.Status == midi.NoteOff:
			drop[i] = true
			k := noteKey{e.Data.Channel, e.Data.Data1}
			q := open[k]
			if len(q) == 0 {
				continue
			}
			on := q[0]
			open[k] = q[1:]
			ev[on].OffTime = e.Time
			ev[on].OffData = e.Data
		}
	}
	out := make([]midi.Event, 0, len(ev))
	for i, e := range ev {
		if drop[i] {
			continue
		}
		if e.Data.Status == midi.NoteOn && !e.Paired() {
			e.OffTime = midi.Max(endTime, e.Time)
			e.OffData = midi.NewCommand(midi.NoteOff, e.Data.Channel, e.Data.Port, e.Data.Data1, 0)
		}
		out = append(out, e)
	}
	return out
}
