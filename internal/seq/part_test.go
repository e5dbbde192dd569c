package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divVerent/midiseq/internal/midi"
)

func TestPartRepeat(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "riff", note(0, 0, 60, 100, 10), note(20, 0, 62, 100, 10))
	const r = 48
	part := makePart(t, 0, 3*r, ph)
	part.SetRepeat(r)

	events := Collect(part.Iterator(0), -1)
	assert.Equal(t, [][2]int{{0, 60}, {20, 62}, {48, 60}, {68, 62}, {96, 60}, {116, 62}}, notes(events))
	for _, e := range events {
		assert.Equal(t, e.Time+10, e.OffTime)
	}

	// Starting inside the second window.
	assert.Equal(t, [][2]int{{68, 62}, {96, 60}, {116, 62}}, notes(Collect(part.Iterator(60), -1)))
}

func TestPartClipsToEnd(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "long", note(0, 0, 60, 100, 200), note(100, 0, 62, 100, 10))
	part := makePart(t, 50, 146, ph)

	events := Collect(part.Iterator(0), -1)
	require.Len(t, events, 1)
	assert.Equal(t, midi.Clock(50), events[0].Time)
	assert.Equal(t, midi.Clock(146), events[0].OffTime)
}

func TestPartOffset(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 5), note(10, 0, 62, 100, 5), note(20, 0, 64, 100, 5))
	part := makePart(t, 100, 200, ph)
	part.SetOffset(10)
	assert.Equal(t, [][2]int{{100, 62}, {110, 64}}, notes(Collect(part.Iterator(0), -1)))
}

func TestPartParamsAndFilter(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 5))
	part := makePart(t, 10, 100, ph)
	part.Params().Set(Program, 7)
	part.Filter().SetChannel(5)

	events := Collect(part.Iterator(0), -1)
	require.Len(t, events, 2)
	assert.Equal(t, midi.NewEvent(midi.NewCommand(midi.ProgramChange, 5, 0, 7, 0), 10), events[0])
	assert.Equal(t, midi.Clock(10), events[1].Time)
	assert.Equal(t, uint8(5), events[1].Data.Channel)
}

func TestPartIteratorSurvivesPhraseDeletion(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 5), note(10, 0, 62, 100, 5))
	part := makePart(t, 0, 96, ph)
	part.Params().Set(Program, 5)
	part.Params().Set(Volume, 100)

	it := part.Iterator(0)
	require.True(t, it.More())
	assert.Equal(t, midi.ProgramChange, it.Current().Data.Status)
	it.Next()

	list.Erase(ph)
	assert.Nil(t, part.Phrase())

	rest := Collect(it, -1)
	require.NotEmpty(t, rest)
	for _, e := range rest {
		assert.NotEqual(t, midi.NoteOn, e.Data.Status)
	}
}

func TestPartIteratorFollowsChanges(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 5), note(10, 0, 62, 100, 5))
	part := makePart(t, 0, 96, ph)

	it := part.Iterator(0)
	defer it.Close()
	part.Filter().SetTranspose(12)
	require.True(t, it.More())
	assert.Equal(t, 72, it.Current().Data.Data1)

	other := makePhrase(t, list, "q", note(0, 0, 40, 100, 5))
	require.NoError(t, part.SetPhrase(other))
	assert.Equal(t, 52, it.Current().Data.Data1)
}

func TestPartSetPhraseUnparented(t *testing.T) {
	part := makePart(t, 0, 10, nil)
	assert.ErrorIs(t, part.SetPhrase(&Phrase{title: "loose"}), ErrPhraseUnparented)
	_, err := NewPart(10, 0)
	assert.ErrorIs(t, err, ErrPartTime)
}

func scaledPart(t *testing.T) *Part {
	t.Helper()
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 10), note(60, 0, 62, 100, 10), note(120, 0, 64, 100, 10))
	part := makePart(t, 0, 400, ph)
	part.Filter().SetTimeScale(200)
	return part
}

func TestPartSeekWithTimeScale(t *testing.T) {
	part := scaledPart(t)
	assert.Equal(t, [][2]int{{0, 60}, {120, 62}, {240, 64}}, notes(Collect(part.Iterator(0), -1)))
	assert.Equal(t, [][2]int{{120, 62}, {240, 64}}, notes(Collect(part.Iterator(100), -1)))
	assert.Equal(t, [][2]int{{120, 62}, {240, 64}}, notes(Collect(part.Iterator(120), -1)))
	assert.Equal(t, [][2]int{{240, 64}}, notes(Collect(part.Iterator(121), -1)))

	it := part.Iterator(0)
	it.MoveTo(110)
	assert.Equal(t, [][2]int{{120, 62}, {240, 64}}, notes(Collect(it, -1)))
}

func TestPartReseekKeepsCurrentEvent(t *testing.T) {
	part := scaledPart(t)
	it := part.Iterator(0)
	it.Next()
	require.True(t, it.More())
	require.Equal(t, midi.Clock(120), it.Current().Time)

	part.Params().Set(Volume, 100)
	rest := Collect(it, -1)
	require.NotEmpty(t, rest)
	assert.Equal(t, midi.NewEvent(midi.NewCommand(midi.ControlChange, 0, 0, midi.Volume, 100), 120), rest[0])
	assert.Equal(t, [][2]int{{120, 62}, {240, 64}}, notes(rest))
}

func TestPartSeekWithFilterOffset(t *testing.T) {
	list := NewPhraseList()
	ph := makePhrase(t, list, "p", note(0, 0, 60, 100, 10), note(60, 0, 62, 100, 10), note(120, 0, 64, 100, 10))
	part := makePart(t, 0, 400, ph)
	part.Filter().SetOffset(10)
	part.Params().Set(Program, 5)

	events := Collect(part.Iterator(30), -1)
	require.Len(t, events, 3)
	assert.Equal(t, midi.ProgramChange, events[0].Data.Status)
	assert.Equal(t, midi.Clock(30), events[0].Time)
	assert.Equal(t, [][2]int{{50, 62}, {110, 64}}, notes(events))
	for k := 1; k < len(events); k++ {
		assert.LessOrEqual(t, events[k-1].Time, events[k].Time)
	}
}
