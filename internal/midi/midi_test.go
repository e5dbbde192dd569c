package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	assert.Equal(t, Clock(96), Convert(96, PPQN))
	assert.Equal(t, Clock(96), Convert(480, 480))
	assert.Equal(t, Clock(48), Convert(240, 480))
	assert.Equal(t, Clock(1), Convert(3, 480)) // 0.6 rounds up.
	assert.Equal(t, Clock(0), Convert(2, 480)) // 0.4 rounds down.
	assert.Equal(t, int64(480), Clock(96).ToPPQN(480))
	assert.Equal(t, "2.48", Clock(2*PPQN+48).String())
}

func TestMetaCommands(t *testing.T) {
	bpm, ok := TempoCommand(140).Tempo()
	require.True(t, ok)
	assert.Equal(t, 140, bpm)

	top, bottom, ok := TimeSigCommand(6, 8).TimeSig()
	require.True(t, ok)
	assert.Equal(t, 6, top)
	assert.Equal(t, 8, bottom)

	inc, minor, ok := KeySigCommand(-3, true).KeySig()
	require.True(t, ok)
	assert.Equal(t, -3, inc)
	assert.True(t, minor)

	assert.True(t, MoveToCommand().IsMoveTo())
	_, ok = MoveToCommand().Tempo()
	assert.False(t, ok)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, []byte{0x93, 60, 100}, NewCommand(NoteOn, 3, 0, 60, 100).Message().Bytes())
	assert.Equal(t, []byte{0x80, 60, 64}, NewCommand(NoteOff, 0, 0, 60, 64).Message().Bytes())
	assert.Equal(t, []byte{0xc1, 5}, NewCommand(ProgramChange, 1, 0, 5, 0).Message().Bytes())
	assert.Equal(t, []byte{0xe0, 0x00, 0x40}, NewCommand(PitchBend, 0, 0, 0, 0x40).Message().Bytes())
	assert.Nil(t, TempoCommand(120).Message())

	c := CommandFromMessage(NewCommand(ControlChange, 9, 0, SustainPedal, 127).Message(), 2)
	assert.Equal(t, NewCommand(ControlChange, 9, 2, SustainPedal, 127), c)
	sustain, down := c.IsSustain()
	assert.True(t, sustain)
	assert.True(t, down)
}

func TestOffQueue(t *testing.T) {
	var q OffQueue
	q.Push(20, NewCommand(NoteOff, 0, 0, 62, 0))
	q.Push(10, NewCommand(NoteOff, 0, 0, 60, 0))
	q.Push(10, NewCommand(NoteOff, 0, 0, 61, 0))
	q.PushNote(NewEvent(NewCommand(ControlChange, 0, 0, 7, 100), 0))
	require.Equal(t, 3, q.Len())

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, Clock(10), next)

	var notes []int
	collect := func(_ Clock, c Command) error {
		notes = append(notes, c.Data1)
		return nil
	}
	require.NoError(t, q.PopUntil(15, collect))
	assert.Equal(t, []int{60, 61}, notes)
	require.NoError(t, q.Flush(collect))
	assert.Equal(t, []int{60, 61, 62}, notes)
	assert.Equal(t, 0, q.Len())
}
