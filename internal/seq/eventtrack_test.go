package seq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/divVerent/midiseq/internal/midi"
)

func TestEventTrack(t *testing.T) {
	flags := NewFlagTrack()
	assert.Equal(t, midi.Clock(0), flags.LastClock())
	flags.Insert(Flag{Title: "b"}, 20)
	flags.Insert(Flag{Title: "a"}, 10)
	flags.Insert(Flag{Title: "c"}, 20)

	var titles []string
	for i := 0; i < flags.Size(); i++ {
		titles = append(titles, flags.At(i).Value.Title)
	}
	assert.Equal(t, []string{"a", "b", "c"}, titles)
	assert.Equal(t, 1, flags.Index(11))
	assert.Equal(t, 3, flags.Index(21))
	assert.Equal(t, midi.Clock(20), flags.LastClock())

	flags.Erase(0)
	assert.Equal(t, "b", flags.At(0).Value.Title)
}

func TestTempoTrack(t *testing.T) {
	tempo := NewTempoTrack()
	tempo.Insert(Tempo{BPM: 90}, 96)
	tempo.Insert(Tempo{BPM: 100}, 96)
	assert.Equal(t, 2, tempo.Size())
	assert.Equal(t, 120, tempo.TempoAt(95))
	assert.Equal(t, 100, tempo.TempoAt(96))

	it := tempo.Iterator(1)
	defer it.Close()
	bpm, ok := it.Current().Data.Tempo()
	assert.True(t, ok)
	assert.Equal(t, 100, bpm)

	tempo.SetStatus(false)
	assert.False(t, it.More())
	tempo.SetStatus(true)
	assert.True(t, it.More())
}

func TestTempoDuration(t *testing.T) {
	tempo := NewTempoTrack()
	assert.Equal(t, 500*time.Millisecond, tempo.Duration(midi.PPQN))
	tempo.Insert(Tempo{BPM: 60}, midi.PPQN)
	assert.Equal(t, 1500*time.Millisecond, tempo.Duration(2*midi.PPQN))
	assert.Equal(t, 500*time.Millisecond, tempo.Duration(midi.PPQN))
	tempo.SetStatus(false)
	assert.Equal(t, time.Second, tempo.Duration(2*midi.PPQN))
}
