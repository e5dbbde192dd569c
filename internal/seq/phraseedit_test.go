package seq

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divVerent/midiseq/internal/midi"
)

func selected(e midi.Event) midi.Event {
	e.Data.Selected = true
	return e
}

func TestInsertKeepsOrder(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(midi.NewEvent(noteOn(0, 1, 1), 10))
	pe.Insert(midi.NewEvent(noteOn(0, 2, 1), 20))
	pe.Insert(midi.NewEvent(noteOn(0, 3, 1), 10))
	pe.Insert(midi.NewEvent(noteOn(0, 4, 1), 0))
	pe.Insert(midi.NewEvent(noteOn(0, 5, 1), 30))

	var got []int
	for _, e := range pe.Events() {
		got = append(got, e.Data.Data1)
	}
	assert.Equal(t, []int{4, 1, 3, 2, 5}, got)
	assert.True(t, pe.Modified())
}

func TestSelectionTracking(t *testing.T) {
	pe := NewPhraseEdit()
	for i := 0; i < 6; i++ {
		e := midi.NewEvent(noteOn(0, 60+i, 100), midi.Clock(i*10))
		if i == 1 || i == 3 || i == 4 {
			e = selected(e)
		}
		pe.Insert(e)
	}
	first, last, ok := pe.Selection()
	require.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 4, last)

	// Inserting before the selection shifts it.
	pe.Insert(midi.NewEvent(noteOn(0, 1, 1), 0))
	first, last, _ = pe.Selection()
	assert.Equal(t, 2, first)
	assert.Equal(t, 5, last)

	// Erasing the first selected event rescans for the next one.
	pe.Erase(2)
	first, last, _ = pe.Selection()
	assert.Equal(t, 3, first)
	assert.Equal(t, 4, last)
	assert.True(t, pe.At(first).Data.Selected)

	// Erasing the last selected event rescans backwards.
	pe.Erase(4)
	first, last, ok = pe.Selection()
	require.True(t, ok)
	assert.Equal(t, 3, first)
	assert.Equal(t, 3, last)

	pe.Erase(3)
	_, _, ok = pe.Selection()
	assert.False(t, ok)

	pe.SelectRange(10, 40)
	first, last, _ = pe.Selection()
	assert.Equal(t, pe.Index(10), first)
	assert.True(t, pe.At(last).Time < 40)

	pe.InvertSelection()
	first, _, ok = pe.Selection()
	require.True(t, ok)
	assert.Equal(t, 0, first)

	pe.SelectNone()
	_, _, ok = pe.Selection()
	assert.False(t, ok)
}

func TestEraseUnselectedInsideSelection(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(selected(midi.NewEvent(noteOn(0, 60, 1), 0)))
	pe.Insert(midi.NewEvent(noteOn(0, 61, 1), 1))
	pe.Insert(selected(midi.NewEvent(noteOn(0, 62, 1), 2)))
	pe.Erase(1)
	first, last, ok := pe.Selection()
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, last)

	pe.Deselect(0)
	first, last, _ = pe.Selection()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, last)
}

func TestTidySustain(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(midi.NewEvent(noteOn(0, 60, 100), 0))
	pe.Insert(midi.NewEvent(midi.NewCommand(midi.ControlChange, 0, 0, midi.SustainPedal, 127), 0))
	pe.Insert(midi.NewEvent(noteOff(0, 60), 10))
	pe.Insert(midi.NewEvent(midi.NewCommand(midi.ControlChange, 0, 0, midi.SustainPedal, 0), 20))
	pe.Tidy(-1)

	require.Equal(t, 1, pe.Size())
	e := pe.At(0)
	assert.True(t, e.Paired())
	assert.Equal(t, midi.Clock(0), e.Time)
	assert.Equal(t, midi.Clock(20), e.OffTime)
}

func TestTidySustainOtherChannel(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(midi.NewEvent(noteOn(1, 60, 100), 0))
	pe.Insert(midi.NewEvent(midi.NewCommand(midi.ControlChange, 0, 0, midi.SustainPedal, 127), 0))
	pe.Insert(midi.NewEvent(noteOff(1, 60), 10))
	pe.Tidy(50)

	require.Equal(t, 1, pe.Size())
	assert.Equal(t, midi.Clock(10), pe.At(0).OffTime)
}

func TestTidyPairing(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(midi.NewEvent(noteOn(0, 60, 100), -5))
	pe.Insert(midi.NewEvent(noteOn(0, 60, 90), 5))
	pe.Insert(midi.NewEvent(noteOn(0, 60, 0), 10))
	pe.Insert(midi.NewEvent(noteOff(0, 60), 15))
	pe.Insert(midi.NewEvent(noteOff(0, 61), 16))
	pe.Insert(midi.NewEvent(noteOn(0, 64, 80), 20))
	pe.Tidy(40)

	require.Equal(t, 3, pe.Size())
	assert.Equal(t, note(0, 0, 60, 100, 10), pe.At(0))
	assert.Equal(t, note(5, 0, 60, 90, 10), pe.At(1))
	assert.Equal(t, note(20, 0, 64, 80, 20), pe.At(2))
}

// captureEvent turns a random number into a capture buffer event.
func captureEvent(v int) midi.Event {
	t := midi.Clock(v%200) - 10
	v /= 200
	kind := v % 5
	v /= 5
	n := 60 + v%4
	v /= 4
	ch := uint8(v % 2)
	switch kind {
	case 0:
		return midi.NewEvent(noteOn(ch, n, 100), t)
	case 1:
		return midi.NewEvent(noteOff(ch, n), t)
	case 2:
		return midi.NewEvent(noteOn(ch, n, 0), t)
	case 3:
		return midi.NewEvent(midi.NewCommand(midi.ControlChange, ch, 0, midi.SustainPedal, 127), t)
	}
	return midi.NewEvent(midi.NewCommand(midi.ControlChange, ch, 0, midi.SustainPedal, 0), t)
}

func TestProperty_Tidy(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	capture := func(vs []int) *PhraseEdit {
		pe := NewPhraseEdit()
		for _, v := range vs {
			pe.Insert(captureEvent(v))
		}
		return pe
	}

	properties.Property("every NoteOn is paired and nothing else remains of notes", prop.ForAll(
		func(vs []int) bool {
			pe := capture(vs)
			pe.Tidy(-1)
			var last midi.Clock
			for _, e := range pe.Events() {
				if e.Time < last {
					return false
				}
				last = e.Time
				switch e.Data.Status {
				case midi.NoteOn:
					if !e.Paired() || e.OffTime < e.Time {
						return false
					}
				case midi.NoteOff:
					return false
				}
				if s, _ := e.Data.IsSustain(); s {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 200*5*4*2-1)),
	))

	properties.Property("tidy is idempotent", prop.ForAll(
		func(vs []int, end int) bool {
			pe := capture(vs)
			pe.Tidy(midi.Clock(end))
			once := pe.Events()
			pe.Tidy(midi.Clock(end))
			return assert.ObjectsAreEqual(once, pe.Events())
		},
		gen.SliceOf(gen.IntRange(0, 200*5*4*2-1)),
		gen.IntRange(-1, 250),
	))

	properties.TestingRun(t)
}

func TestPhraseEditIterator(t *testing.T) {
	pe := NewPhraseEdit()
	pe.Insert(note(0, 0, 60, 100, 5))
	pe.Insert(note(10, 0, 62, 100, 5))
	it := pe.Iterator(0)
	defer it.Close()
	require.True(t, it.More())
	it.Next()
	assert.Equal(t, 62, it.Current().Data.Data1)

	// Inserting reseeks at the current position.
	pe.Insert(note(10, 0, 64, 100, 5))
	assert.Equal(t, 62, it.Current().Data.Data1)
	it.Next()
	assert.Equal(t, 64, it.Current().Data.Data1)
	it.Next()
	assert.False(t, it.More())
}
