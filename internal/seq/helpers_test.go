package seq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divVerent/midiseq/internal/midi"
)

func noteOn(ch uint8, n, vel int) midi.Command {
	return midi.NewCommand(midi.NoteOn, ch, 0, n, vel)
}

func noteOff(ch uint8, n int) midi.Command {
	return midi.NewCommand(midi.NoteOff, ch, 0, n, 0)
}

func note(t midi.Clock, ch uint8, n, vel int, length midi.Clock) midi.Event {
	return midi.NewNote(noteOn(ch, n, vel), t, noteOff(ch, n), t+length)
}

func makePhrase(t *testing.T, list *PhraseList, title string, events ...midi.Event) *Phrase {
	t.Helper()
	pe := NewPhraseEdit()
	for _, e := range events {
		pe.Insert(e)
	}
	pe.Tidy(-1)
	p, err := pe.CreatePhrase(list, title)
	require.NoError(t, err)
	return p
}

func makePart(t *testing.T, start, end midi.Clock, ph *Phrase) *Part {
	t.Helper()
	p, err := NewPart(start, end)
	require.NoError(t, err)
	if ph != nil {
		require.NoError(t, p.SetPhrase(ph))
	}
	return p
}

// notes returns the valid notes of events as "time:note" pairs.
func notes(events []midi.Event) [][2]int {
	var out [][2]int
	for _, e := range events {
		if e.Data.Status == midi.NoteOn {
			out = append(out, [2]int{int(e.Time), e.Data.Data1})
		}
	}
	return out
}
