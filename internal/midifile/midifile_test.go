package midifile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/seq"
)

func TestReadVLQ(t *testing.T) {
	for _, tc := range []struct {
		in   []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x81, 0x48}, 200},
		{[]byte{0xff, 0xff, 0x7f}, 2097151},
		{[]byte{0x81, 0x80, 0x80, 0x00}, 2097152},
		{[]byte{0xff, 0xff, 0xff, 0x7f}, 0x0fffffff},
	} {
		v, n, ok := ReadVLQ(tc.in)
		assert.True(t, ok)
		assert.Equal(t, tc.want, v)
		assert.Equal(t, len(tc.in), n)
		assert.Equal(t, tc.in, AppendVLQ(nil, tc.want))
	}

	_, _, ok := ReadVLQ([]byte{0x81})
	assert.False(t, ok)
	_, _, ok = ReadVLQ([]byte{0x81, 0x80, 0x80, 0x80, 0x00})
	assert.False(t, ok)
}

func TestProperty_VLQ(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("ReadVLQ inverts AppendVLQ", prop.ForAll(
		func(v int, prefix []int) bool {
			var b []byte
			for _, p := range prefix {
				b = append(b, byte(p))
			}
			b = AppendVLQ(b, uint32(v))
			got, n, ok := ReadVLQ(b[len(prefix):])
			return ok && got == uint32(v) && n == len(b)-len(prefix)
		},
		gen.IntRange(0, 0x0fffffff),
		gen.SliceOf(gen.IntRange(0, 255)),
	))
	properties.TestingRun(t)
}

type noteInfo struct {
	Time, OffTime midi.Clock
	Channel       uint8
	Port          int
	Note          int
	Velocity      int
}

func notesOf(it seq.Iterator) []noteInfo {
	var out []noteInfo
	for _, e := range seq.Collect(it, -1) {
		if e.Data.Status != midi.NoteOn {
			continue
		}
		out = append(out, noteInfo{e.Time, e.OffTime, e.Data.Channel, e.Data.Port, e.Data.Data1, e.Data.Data2})
	}
	return out
}

func note(t midi.Clock, ch uint8, port, n, vel int, length midi.Clock) midi.Event {
	return midi.NewNote(
		midi.NewCommand(midi.NoteOn, ch, port, n, vel), t,
		midi.NewCommand(midi.NoteOff, ch, port, n, 0), t+length)
}

func addTrack(t *testing.T, s *seq.Song, title string, events ...midi.Event) {
	t.Helper()
	pe := seq.NewPhraseEdit()
	for _, e := range events {
		pe.Insert(e)
	}
	pe.Tidy(-1)
	ph, err := pe.CreatePhrase(s.PhraseList(), title)
	require.NoError(t, err)
	part, err := seq.NewPart(0, 768)
	require.NoError(t, err)
	require.NoError(t, part.SetPhrase(ph))
	track := seq.NewTrack()
	track.SetTitle(title)
	require.NoError(t, track.Insert(part))
	require.NoError(t, s.Insert(track, -1))
}

func testSong(t *testing.T) *seq.Song {
	s := seq.NewSong(0)
	s.SetTitle("Round Trip")
	s.SetCopyright("(c) 2026 nobody")
	s.SetAuthor("someone")
	s.TempoTrack().Insert(seq.Tempo{BPM: 100}, 0)
	s.TempoTrack().Insert(seq.Tempo{BPM: 140}, 384)
	s.TimeSigTrack().Insert(seq.TimeSig{Top: 3, Bottom: 4}, 0)
	s.KeySigTrack().Insert(seq.KeySig{Incidentals: -2}, 0)
	s.FlagTrack().Insert(seq.Flag{Title: "Verse"}, 96)
	addTrack(t, s, "Piano",
		midi.NewEvent(midi.NewCommand(midi.ProgramChange, 0, 0, 5, 0), 0),
		note(0, 0, 0, 60, 100, 96),
		note(96, 0, 0, 64, 90, 48),
		note(96, 0, 0, 67, 80, 96),
		note(384, 0, 0, 72, 70, 192))
	addTrack(t, s, "Bass",
		note(0, 1, 1, 36, 110, 192),
		note(192, 1, 1, 38, 100, 192))
	return s
}

type recordedProgress struct {
	min, max int
	calls    []int
}

func (p *recordedProgress) ProgressRange(min, max int) { p.min, p.max = min, max }
func (p *recordedProgress) Progress(current int)       { p.calls = append(p.calls, current) }

func TestRoundTripFormat1(t *testing.T) {
	for _, compact := range []bool{false, true} {
		s := testSong(t)
		var progress recordedProgress
		data, err := Encode(s, ExportOptions{Format: 1, Compact: compact, Progress: &progress})
		require.NoError(t, err)
		assert.Equal(t, 3, progress.max)
		assert.NotEmpty(t, progress.calls)

		got, info, err := Import(data, ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, Info{Format: 1, NumTracks: 3, PPQN: 96, Chunks: 3, LastTick: 768}, info)

		assert.Equal(t, "Round Trip", got.Title())
		assert.Equal(t, "(c) 2026 nobody", got.Copyright())
		assert.Equal(t, "someone", got.Author())
		assert.Equal(t, 100, got.TempoTrack().TempoAt(0))
		assert.Equal(t, 140, got.TempoTrack().TempoAt(384))
		sig, _ := got.TimeSigTrack().ValueAt(0)
		assert.Equal(t, seq.TimeSig{Top: 3, Bottom: 4}, sig)
		key, _ := got.KeySigTrack().ValueAt(0)
		assert.Equal(t, seq.KeySig{Incidentals: -2}, key)
		require.Equal(t, 1, got.FlagTrack().Size())
		assert.Equal(t, seq.Timed[seq.Flag]{Time: 96, Value: seq.Flag{Title: "Verse"}}, got.FlagTrack().At(0))

		require.Equal(t, 2, got.Size())
		for i := 0; i < 2; i++ {
			assert.Equal(t, s.At(i).Title(), got.At(i).Title())
			assert.Equal(t, notesOf(s.At(i).Iterator(0)), notesOf(got.At(i).Iterator(0)))
			assert.Equal(t, midi.Clock(768), got.At(i).LastClock())
		}
	}
}

func TestRoundTripFormat0(t *testing.T) {
	s := testSong(t)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, s, ExportOptions{Format: 0, Compact: true}))

	got, info, err := ImportReader(&buf, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, info.Format)
	assert.Equal(t, "Round Trip", got.Title())
	require.Equal(t, 1, got.Size())
	assert.Equal(t, notesOf(s.Iterator(0)), notesOf(got.At(0).Iterator(0)))
	assert.Equal(t, midi.Clock(768), got.LastClock())
}

func TestExportReadByGomidi(t *testing.T) {
	data, err := Encode(testSong(t), ExportOptions{Format: 1, Compact: true})
	require.NoError(t, err)

	mid, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, mid.Tracks, 3)
	assert.Equal(t, smf.MetricTicks(96), mid.TimeFormat.(smf.MetricTicks))

	var bpm float64
	found := false
	for _, ev := range mid.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
			break
		}
	}
	require.True(t, found)
	assert.InDelta(t, 100, bpm, 0.01)

	var name string
	found = false
	for _, ev := range mid.Tracks[1] {
		if ev.Message.GetMetaTrackName(&name) {
			found = true
			break
		}
	}
	require.True(t, found)
	assert.Equal(t, "Piano", name)
}

func TestImportGomidiFile(t *testing.T) {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(480)
	var track smf.Track
	track.Add(0, smf.MetaTempo(90))
	track.Add(0, gomidi.NoteOn(2, 60, 100))
	track.Add(480, gomidi.NoteOff(2, 60))
	track.Add(240, gomidi.NoteOn(2, 62, 100))
	track.Add(240, gomidi.NoteOff(2, 62))
	track.Close(0)
	require.NoError(t, sm.Add(track))
	name := filepath.Join(t.TempDir(), "in.mid")
	require.NoError(t, sm.WriteFile(name))

	got, info, err := ImportFile(name, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 480, info.PPQN)
	assert.Equal(t, 90, got.TempoTrack().TempoAt(0))
	require.Equal(t, 1, got.Size())
	assert.Equal(t, []noteInfo{
		{Time: 0, OffTime: 96, Channel: 2, Note: 60, Velocity: 100},
		{Time: 144, OffTime: 192, Channel: 2, Note: 62, Velocity: 100},
	}, notesOf(got.At(0).Iterator(0)))
}

func chunkBytes(tag string, length int, body ...byte) []byte {
	b := []byte(tag)
	b = append(b, byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	return append(b, body...)
}

func TestImportRecovers(t *testing.T) {
	data := chunkBytes("MThd", 6, 0, 1, 0, 3, 0, 96)
	data = append(data, chunkBytes("JUNK", 2, 'a', 'b')...)
	trackA := []byte{0x00, 0x90, 60, 100, 0x60, 60, 0, 0x00, 0xff, 0x2f, 0x00}
	data = append(data, chunkBytes("MTrk", len(trackA), trackA...)...)
	trackB := []byte{0x00, 60, 100, 0x00, 0xff, 0x2f, 0x00}
	data = append(data, chunkBytes("MTrk", len(trackB), trackB...)...)
	trackC := []byte{0x00, 0x91, 64, 80, 0x10, 0x81, 64, 0, 0x00, 0xff, 0x2f, 0x00}
	data = append(data, chunkBytes("MTrk", 100, trackC...)...)

	got, info, err := Import(data, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, info.Chunks)
	require.Equal(t, 2, got.Size())
	assert.Equal(t, []noteInfo{{Time: 0, OffTime: 96, Channel: 0, Note: 60, Velocity: 100}}, notesOf(got.At(0).Iterator(0)))
	assert.Equal(t, []noteInfo{{Time: 0, OffTime: 16, Channel: 1, Note: 64, Velocity: 80}}, notesOf(got.At(1).Iterator(0)))
	assert.Equal(t, midi.Clock(96), got.At(0).LastClock())
}

func TestImportOversizedChunkLength(t *testing.T) {
	data := chunkBytes("MThd", 6, 0, 1, 0, 2, 0, 96)
	trackB := []byte{0x00, 0x91, 64, 80, 0x10, 0x81, 64, 0, 0x00, 0xff, 0x2f, 0x00}
	chunkB := chunkBytes("MTrk", len(trackB), trackB...)
	trackA := []byte{0x00, 0x90, 60, 100, 0x60, 60, 0, 0x00, 0xff, 0x2f, 0x00}
	data = append(data, chunkBytes("MTrk", len(trackA)+len(chunkB), trackA...)...)
	data = append(data, chunkB...)

	got, info, err := Import(data, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, info.Chunks)
	require.Equal(t, 2, got.Size())
	assert.Equal(t, []noteInfo{{Time: 0, OffTime: 96, Channel: 0, Note: 60, Velocity: 100}}, notesOf(got.At(0).Iterator(0)))
	assert.Equal(t, []noteInfo{{Time: 0, OffTime: 16, Channel: 1, Note: 64, Velocity: 80}}, notesOf(got.At(1).Iterator(0)))
}

func TestImportErrors(t *testing.T) {
	_, _, err := Import([]byte("RIFF\x00\x00\x00\x06"), ImportOptions{})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, _, err = Import(chunkBytes("MThd", 6, 0, 0, 0, 1, 0xe7, 0x28), ImportOptions{})
	assert.ErrorIs(t, err, ErrFileFormatBroken)

	_, _, err = Import(chunkBytes("MThd", 6, 0, 0, 0), ImportOptions{})
	assert.ErrorIs(t, err, ErrFileFormatBroken)

	_, _, err = ImportFile(filepath.Join(t.TempDir(), "missing.mid"), ImportOptions{})
	assert.ErrorIs(t, err, ErrCouldNotOpenFile)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Encode(seq.NewSong(0), ExportOptions{Format: 2})
	assert.ErrorIs(t, err, ErrExport)
}

func TestCharset(t *testing.T) {
	s := seq.NewSong(0)
	s.SetTitle("Café")
	data, err := Encode(s, ExportOptions{Format: 1, Charset: "latin1"})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte{'C', 'a', 'f', 0xe9}))

	got, _, err := Import(data, ImportOptions{Charset: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, "Café", got.Title())
	assert.Equal(t, 0, got.Size())

	_, _, err = Import(data, ImportOptions{Charset: "klingon"})
	assert.ErrorIs(t, err, ErrImport)
}
