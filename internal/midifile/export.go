package midifile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/seq"
)

// ExportOptions control Export.
type ExportOptions struct {
	// Format is 0 for a single merged track chunk, or 1 for a meta track
	// followed by one chunk per Track.
	Format int
	// Compact omits status bytes equal to the previous one.
	Compact bool
	// Charset of text meta events; empty means UTF-8.
	Charset string
	// Progress, if set, is told about every chunk written.
	Progress Progress
}

// ExportFile writes s to the file name.
func ExportFile(name string, s *seq.Song, opts ExportOptions) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("%w %v: %w", ErrCouldNotOpenFile, name, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return Export(f, s, opts)
}

// Export writes s to w as a standard MIDI file.
func Export(w io.Writer, s *seq.Song, opts ExportOptions) error {
	data, err := Encode(s, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}

// Encode returns s as a standard MIDI file.
func Encode(s *seq.Song, opts ExportOptions) ([]byte, error) {
	if opts.Format != 0 && opts.Format != 1 {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrExport, opts.Format)
	}
	enc, err := lookupCharset(opts.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	ex := &exporter{enc: enc, compact: opts.Compact}
	progress := orNoProgress(opts.Progress)

	var chunks [][]byte
	if opts.Format == 0 {
		progress.ProgressRange(0, 1)
		tw := ex.newTrack()
		ex.songInfo(tw, s)
		tw.play(s.Iterator(0), s.FlagTrack())
		chunks = append(chunks, tw.finish(s.LastClock()))
	} else {
		tracks := s.Tracks()
		progress.ProgressRange(0, len(tracks)+1)
		tw := ex.newTrack()
		ex.songInfo(tw, s)
		meta := seq.Merge(s.TempoTrack().Iterator(0), s.TimeSigTrack().Iterator(0), s.KeySigTrack().Iterator(0))
		tw.play(meta, s.FlagTrack())
		chunks = append(chunks, tw.finish(0))
		for i, t := range tracks {
			progress.Progress(i + 1)
			tw := ex.newTrack()
			if t.Title() != "" {
				tw.meta(0, smf.MetaTrackSequenceName(ex.text(t.Title())))
			}
			tw.play(t.Iterator(0), nil)
			chunks = append(chunks, tw.finish(t.LastClock()))
		}
	}
	progress.Progress(len(chunks))

	out := make([]byte, 0, 14)
	out = append(out, headerTag...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, uint16(opts.Format))
	out = binary.BigEndian.AppendUint16(out, uint16(len(chunks)))
	out = binary.BigEndian.AppendUint16(out, midi.PPQN)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

type exporter struct {
	enc     encoding.Encoding
	compact bool
}

func (ex *exporter) text(s string) string {
	return encodeText(ex.enc, s)
}

func (ex *exporter) newTrack() *trackWriter {
	return &trackWriter{ex: ex}
}

func (ex *exporter) songInfo(tw *trackWriter, s *seq.Song) {
	if s.Title() != "" {
		tw.meta(0, smf.MetaTrackSequenceName(ex.text(s.Title())))
	}
	if s.Copyright() != "" {
		tw.meta(0, smf.MetaCopyright(ex.text(s.Copyright())))
	}
	if s.Author() != "" {
		tw.meta(0, smf.MetaText(ex.text(s.Author())))
	}
}

// trackWriter builds the body of one track chunk.
type trackWriter struct {
	ex     *exporter
	buf    []byte
	last   midi.Clock
	status byte
	port   int
	offs   midi.OffQueue
}

func (tw *trackWriter) delta(t midi.Clock) {
	t = max(t, tw.last)
	tw.buf = AppendVLQ(tw.buf, uint32(t-tw.last))
	tw.last = t
}

func (tw *trackWriter) writeMeta(t midi.Clock, msg []byte) {
	tw.delta(t)
	tw.buf = append(tw.buf, msg...)
	tw.status = 0
}

// meta writes a meta event after every note-off due by then.
func (tw *trackWriter) meta(t midi.Clock, msg smf.Message) {
	tw.flushOffs(t)
	tw.writeMeta(t, msg)
}

func (tw *trackWriter) channel(t midi.Clock, cmd midi.Command) {
	msg := cmd.Message().Bytes()
	if len(msg) == 0 {
		return
	}
	if cmd.Port != tw.port && cmd.Port >= 0 && cmd.Port < 0x80 {
		tw.writeMeta(t, []byte{0xff, metaPort, 1, byte(cmd.Port)})
		tw.port = cmd.Port
	}
	tw.delta(t)
	if tw.ex.compact && msg[0] == tw.status {
		msg = msg[1:]
	} else {
		tw.status = msg[0]
	}
	tw.buf = append(tw.buf, msg...)
}

func (tw *trackWriter) flushOffs(t midi.Clock) {
	tw.offs.PopUntil(t, func(at midi.Clock, cmd midi.Command) error {
		tw.channel(at, cmd)
		return nil
	})
}

func (tw *trackWriter) event(e midi.Event) {
	tw.flushOffs(e.Time)
	switch {
	case e.Data.Status.IsChannel():
		tw.channel(e.Time, e.Data)
		tw.offs.PushNote(e)
	case e.Data.Status == midi.TSEMeta:
		if bpm, ok := e.Data.Tempo(); ok && bpm > 0 {
			tw.writeMeta(e.Time, smf.MetaTempo(float64(bpm)))
		} else if top, bottom, ok := e.Data.TimeSig(); ok {
			tw.writeMeta(e.Time, smf.MetaMeter(uint8(top), uint8(bottom)))
		} else if inc, minor, ok := e.Data.KeySig(); ok {
			mi := byte(0)
			if minor {
				mi = 1
			}
			tw.writeMeta(e.Time, []byte{0xff, metaKeySig, 2, byte(int8(inc)), mi})
		}
	}
}

// play writes every event of it, interleaved with the markers of flags.
func (tw *trackWriter) play(it seq.Iterator, flags *seq.FlagTrack) {
	defer it.Close()
	fi := 0
	marker := func() {
		f := flags.At(fi)
		fi++
		msg := []byte{0xff, metaMarker}
		text := tw.ex.text(f.Value.Title)
		msg = AppendVLQ(msg, uint32(len(text)))
		tw.meta(f.Time, append(msg, text...))
	}
	for ; it.More(); it.Next() {
		e := it.Current()
		for flags != nil && fi < flags.Size() && flags.At(fi).Time <= e.Time {
			marker()
		}
		tw.event(e)
	}
	for flags != nil && fi < flags.Size() {
		marker()
	}
}

// finish flushes the pending note-offs and returns the whole chunk, ending
// no earlier than end.
func (tw *trackWriter) finish(end midi.Clock) []byte {
	tw.offs.Flush(func(at midi.Clock, cmd midi.Command) error {
		tw.channel(at, cmd)
		return nil
	})
	tw.writeMeta(max(end, tw.last), []byte{0xff, metaEndOfTrack, 0})

	chunk := make([]byte, 0, 8+len(tw.buf))
	chunk = append(chunk, trackTag...)
	chunk = binary.BigEndian.AppendUint32(chunk, 0)
	chunk = append(chunk, tw.buf...)
	binary.BigEndian.PutUint32(chunk[4:8], uint32(len(tw.buf)))
	return chunk
}
