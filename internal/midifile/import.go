package midifile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/seq"
)

// Meta event types.
const (
	metaSequenceNumber = 0x00
	metaText           = 0x01
	metaCopyright      = 0x02
	metaTrackName      = 0x03
	metaInstrument     = 0x04
	metaLyric          = 0x05
	metaMarker         = 0x06
	metaCuePoint       = 0x07
	metaPort           = 0x21
	metaEndOfTrack     = 0x2f
	metaTempo          = 0x51
	metaSMPTEOffset    = 0x54
	metaTimeSig        = 0x58
	metaKeySig         = 0x59
	metaSpecific       = 0x7f
)

var (
	headerTag = []byte("MThd")
	trackTag  = []byte("MTrk")
)

// Info describes an imported file.
type Info struct {
	Format    int   `yaml:"format"`
	NumTracks int   `yaml:"num_tracks"`
	PPQN      int   `yaml:"ppqn"`
	Chunks    int   `yaml:"chunks"`
	LastTick  int64 `yaml:"last_tick"`
}

// ImportOptions control Import.
type ImportOptions struct {
	// Charset of text meta events; empty means UTF-8.
	Charset string
	// Progress, if set, is told about every chunk read.
	Progress Progress
}

// ImportFile reads the standard MIDI file name into a new Song.
func ImportFile(name string, opts ImportOptions) (*seq.Song, Info, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w %v: %w", ErrCouldNotOpenFile, name, err)
	}
	return Import(data, opts)
}

// ImportReader reads a standard MIDI file from r into a new Song.
func ImportReader(r io.Reader, opts ImportOptions) (*seq.Song, Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %w", ErrImport, err)
	}
	return Import(data, opts)
}

// Import decodes a standard MIDI file into a new Song. Every track chunk with
// channel events becomes a Track holding one Part that plays a Phrase made of
// the chunk's events.
//
// Damaged chunks do not fail the import: the decoder skips ahead to the next
// track chunk and logs what it dropped.
func Import(data []byte, opts ImportOptions) (*seq.Song, Info, error) {
	enc, err := lookupCharset(opts.Charset)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %w", ErrImport, err)
	}
	info, pos, err := readHeader(data)
	if err != nil {
		return nil, info, err
	}
	progress := orNoProgress(opts.Progress)
	progress.ProgressRange(0, len(data))

	im := &importer{
		song: seq.NewSong(0),
		info: &info,
		enc:  enc,
	}
	for pos < len(data) {
		if !bytes.HasPrefix(data[pos:], trackTag) {
			next := bytes.Index(data[pos:], trackTag)
			if next < 0 {
				log.Printf("midifile: ignoring %d trailing bytes at offset %d", len(data)-pos, pos)
				break
			}
			log.Printf("midifile: skipping %d bytes of unknown chunk data at offset %d", next, pos)
			pos += next
			continue
		}
		if pos+8 > len(data) {
			log.Printf("midifile: truncated track header at offset %d", pos)
			break
		}
		length := int64(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := int64(body) + length
		if end > int64(len(data)) {
			log.Printf("midifile: track chunk %d claims %d bytes, only %d left", info.Chunks, length, len(data)-body)
			end = int64(len(data))
		}
		used, err := im.readTrack(data[body:end])
		if err != nil {
			return nil, info, err
		}
		info.Chunks++
		pos = int(end)
		if rest := data[body+used : end]; bytes.Contains(rest, trackTag) {
			// The chunk ended early and its length covers another chunk.
			log.Printf("midifile: track chunk %d ends %d bytes before its declared length", info.Chunks-1, len(rest))
			pos = body + used
		}
		progress.Progress(pos)
	}
	if info.Chunks == 0 && info.NumTracks > 0 {
		return nil, info, fmt.Errorf("%w: no track chunks found", ErrFileFormatBroken)
	}
	return im.song, info, nil
}

// ReadHeader decodes the header chunk of a standard MIDI file.
func ReadHeader(data []byte) (Info, error) {
	info, _, err := readHeader(data)
	return info, err
}

func readHeader(data []byte) (Info, int, error) {
	if !bytes.HasPrefix(data, headerTag) {
		return Info{}, 0, ErrInvalidFileType
	}
	if len(data) < 14 {
		return Info{}, 0, fmt.Errorf("%w: truncated header", ErrFileFormatBroken)
	}
	length := binary.BigEndian.Uint32(data[4:8])
	if length < 6 || int64(length) > int64(len(data)-8) {
		return Info{}, 0, fmt.Errorf("%w: header length %d", ErrFileFormatBroken, length)
	}
	info := Info{
		Format:    int(binary.BigEndian.Uint16(data[8:10])),
		NumTracks: int(binary.BigEndian.Uint16(data[10:12])),
	}
	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 != 0 {
		return info, 0, fmt.Errorf("%w: SMPTE time division is not supported", ErrFileFormatBroken)
	}
	if division == 0 {
		return info, 0, fmt.Errorf("%w: zero time division", ErrFileFormatBroken)
	}
	info.PPQN = int(division)
	if info.Format > 2 {
		return info, 0, fmt.Errorf("%w: unknown format %d", ErrFileFormatBroken, info.Format)
	}
	return info, 8 + int(length), nil
}

type importer struct {
	song *seq.Song
	info *Info
	enc  encoding.Encoding
}

// chunk is the decoding state of one track chunk.
type chunk struct {
	data   []byte
	pos    int
	status byte
	tick   int64
	port   int
	title  string
	end    midi.Clock
	hasEnd bool
	edit   *seq.PhraseEdit
	events int
}

// readTrack decodes one track chunk body. It returns how many bytes were
// decoded up to and including the end-of-track event, or all of data if the
// chunk has none.
func (im *importer) readTrack(data []byte) (int, error) {
	c := &chunk{data: data, edit: seq.NewPhraseEdit()}
	for c.pos < len(c.data) && !c.hasEnd {
		if !im.readEvent(c) {
			break
		}
	}
	used := len(data)
	if c.hasEnd {
		used = c.pos
	}
	im.info.LastTick = max(im.info.LastTick, c.tick)
	if c.events == 0 {
		return used, nil
	}

	end := c.end
	if !c.hasEnd {
		end = c.edit.LastClock()
	}
	c.edit.Tidy(end)
	for i := 0; i < c.edit.Size(); i++ {
		e := c.edit.At(i)
		end = max(end, e.Time+1)
		if e.Paired() {
			end = max(end, e.OffTime)
		}
	}

	list := im.song.PhraseList()
	base := c.title
	if base == "" {
		base = seq.DefaultPhraseTitle
	}
	phrase, err := c.edit.CreatePhrase(list, list.NewPhraseTitle(base))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	part, err := seq.NewPart(0, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	if err := part.SetPhrase(phrase); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	track := seq.NewTrack()
	track.SetTitle(c.title)
	if err := track.Insert(part); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	if err := im.song.Insert(track, -1); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	return used, nil
}

// readEvent decodes one event. It returns false when the rest of the chunk
// cannot be decoded.
func (im *importer) readEvent(c *chunk) bool {
	delta, n, ok := ReadVLQ(c.data[c.pos:])
	if !ok {
		log.Printf("midifile: chunk %d: bad delta time at offset %d", im.info.Chunks, c.pos)
		return false
	}
	c.pos += n
	c.tick += int64(delta)
	t := midi.Convert(c.tick, im.info.PPQN)
	if c.pos >= len(c.data) {
		return false
	}

	b := c.data[c.pos]
	switch {
	case b == 0xff:
		c.pos++
		if c.pos >= len(c.data) {
			return false
		}
		typ := c.data[c.pos]
		c.pos++
		payload, ok := c.block()
		if !ok {
			log.Printf("midifile: chunk %d: truncated meta event %#02x", im.info.Chunks, typ)
			return false
		}
		im.meta(c, t, typ, payload)
		return true
	case b == 0xf0 || b == 0xf7:
		c.pos++
		if _, ok := c.block(); !ok {
			log.Printf("midifile: chunk %d: truncated system exclusive event", im.info.Chunks)
			return false
		}
		return true
	case b&0x80 != 0:
		c.status = b
		c.pos++
	case c.status == 0:
		log.Printf("midifile: chunk %d: data byte %#02x without status at offset %d", im.info.Chunks, b, c.pos)
		return false
	}

	s := midi.Status(c.status >> 4)
	if !s.IsChannel() {
		log.Printf("midifile: chunk %d: unexpected status %#02x", im.info.Chunks, c.status)
		return false
	}
	if c.pos+s.DataBytes() > len(c.data) {
		return false
	}
	var d1, d2 byte
	d1 = c.data[c.pos]
	if s.DataBytes() == 2 {
		d2 = c.data[c.pos+1]
	}
	c.pos += s.DataBytes()
	cmd, _ := midi.DecodeChannelMessage(c.status, d1, d2, c.port)
	c.edit.Insert(midi.NewEvent(cmd, t))
	c.events++
	return true
}

// block reads a length prefixed block.
func (c *chunk) block() ([]byte, bool) {
	length, n, ok := ReadVLQ(c.data[c.pos:])
	if !ok {
		return nil, false
	}
	c.pos += n
	if int64(c.pos)+int64(length) > int64(len(c.data)) {
		return nil, false
	}
	b := c.data[c.pos : c.pos+int(length)]
	c.pos += int(length)
	return b, true
}

// rawMeta rebuilds the wire form of a meta event for the smf accessors.
func rawMeta(typ byte, payload []byte) smf.Message {
	msg := []byte{0xff, typ}
	msg = AppendVLQ(msg, uint32(len(payload)))
	return smf.Message(append(msg, payload...))
}

func (im *importer) meta(c *chunk, t midi.Clock, typ byte, payload []byte) {
	song := im.song
	songLevel := im.info.Format == 0 || im.info.Chunks == 0
	switch typ {
	case metaText:
		if songLevel && song.Author() == "" {
			song.SetAuthor(decodeText(im.enc, payload))
		}
	case metaCopyright:
		song.SetCopyright(decodeText(im.enc, payload))
	case metaTrackName:
		var name string
		if !rawMeta(typ, payload).GetMetaTrackName(&name) {
			return
		}
		name = decodeText(im.enc, []byte(name))
		if songLevel {
			song.SetTitle(name)
		} else {
			c.title = name
		}
	case metaMarker, metaCuePoint:
		song.FlagTrack().Insert(seq.Flag{Title: decodeText(im.enc, payload)}, t)
	case metaPort:
		if len(payload) >= 1 {
			c.port = int(payload[0])
		}
	case metaEndOfTrack:
		c.end = t
		c.hasEnd = true
	case metaTempo:
		var bpm float64
		if rawMeta(typ, payload).GetMetaTempo(&bpm) && bpm > 0 && !math.IsInf(bpm, 0) {
			song.TempoTrack().Insert(seq.Tempo{BPM: int(math.Round(bpm))}, t)
		}
	case metaTimeSig:
		var num, denom, cpt, dsqpq uint8
		if rawMeta(typ, payload).GetMetaTimeSig(&num, &denom, &cpt, &dsqpq) && num > 0 && denom > 0 {
			song.TimeSigTrack().Insert(seq.TimeSig{Top: int(num), Bottom: int(denom)}, t)
		}
	case metaKeySig:
		if len(payload) >= 2 {
			song.KeySigTrack().Insert(seq.KeySig{Incidentals: int(int8(payload[0])), Minor: payload[1] != 0}, t)
		}
	case metaSequenceNumber, metaInstrument, metaLyric, metaSMPTEOffset, metaSpecific:
		// Not represented in the model.
	}
}
