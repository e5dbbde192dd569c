package file

import (
	"fmt"
	"io"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/midifile"
	"github.com/divVerent/midiseq/internal/seq"
)

// Summary is a YAML friendly overview of a song.
type Summary struct {
	Title     string         `yaml:"title,omitempty"`
	Author    string         `yaml:"author,omitempty"`
	Copyright string         `yaml:"copyright,omitempty"`
	Date      string         `yaml:"date,omitempty"`
	File      *midifile.Info `yaml:"file,omitempty"`
	LastClock midi.Clock     `yaml:"last_clock"`
	Duration  time.Duration  `yaml:"duration"`
	Tempos    []TimedValue   `yaml:"tempos,omitempty"`
	TimeSigs  []TimedValue   `yaml:"time_sigs,omitempty"`
	KeySigs   []TimedValue   `yaml:"key_sigs,omitempty"`
	Flags     []TimedValue   `yaml:"flags,omitempty"`
	Phrases   []string       `yaml:"phrases,omitempty"`
	Tracks    []TrackSummary `yaml:"tracks,omitempty"`
}

type TimedValue struct {
	At    midi.Clock `yaml:"at"`
	Value any        `yaml:"value"`
}

type TrackSummary struct {
	Title     string     `yaml:"title,omitempty"`
	Parts     int        `yaml:"parts"`
	Notes     int        `yaml:"notes"`
	Channels  []int      `yaml:"channels,flow,omitempty"`
	LastClock midi.Clock `yaml:"last_clock"`
}

func timedValues[T any](t *seq.EventTrack[T], format func(T) any) []TimedValue {
	var out []TimedValue
	for i := 0; i < t.Size(); i++ {
		e := t.At(i)
		out = append(out, TimedValue{At: e.Time, Value: format(e.Value)})
	}
	return out
}

// Summarize describes s. info may be nil if s was not imported.
func Summarize(s *seq.Song, info *midifile.Info) *Summary {
	s.Lock()
	defer s.Unlock()
	sum := &Summary{
		Title:     s.Title(),
		Author:    s.Author(),
		Copyright: s.Copyright(),
		Date:      s.Date(),
		File:      info,
		LastClock: s.LastClock(),
		Duration:  s.TempoTrack().Duration(s.LastClock()),
		Tempos: timedValues(&s.TempoTrack().EventTrack, func(v seq.Tempo) any {
			return v.BPM
		}),
		TimeSigs: timedValues(&s.TimeSigTrack().EventTrack, func(v seq.TimeSig) any {
			return fmt.Sprintf("%d/%d", v.Top, v.Bottom)
		}),
		KeySigs: timedValues(&s.KeySigTrack().EventTrack, func(v seq.KeySig) any {
			if v.Minor {
				return fmt.Sprintf("%+d minor", v.Incidentals)
			}
			return fmt.Sprintf("%+d major", v.Incidentals)
		}),
		Flags: timedValues(&s.FlagTrack().EventTrack, func(v seq.Flag) any {
			return v.Title
		}),
	}
	phrases := s.PhraseList()
	for i := 0; i < phrases.Size(); i++ {
		sum.Phrases = append(sum.Phrases, phrases.At(i).Title())
	}
	for _, t := range s.Tracks() {
		ts := TrackSummary{
			Title:     t.Title(),
			Parts:     t.Size(),
			LastClock: t.LastClock(),
		}
		for _, e := range seq.Collect(t.Iterator(0), -1) {
			if !e.Data.Status.IsChannel() {
				continue
			}
			if e.Data.Status == midi.NoteOn {
				ts.Notes++
			}
			if ch := int(e.Data.Channel); !slices.Contains(ts.Channels, ch) {
				ts.Channels = append(ts.Channels, ch)
			}
		}
		slices.Sort(ts.Channels)
		sum.Tracks = append(sum.Tracks, ts)
	}
	return sum
}

// WriteSummary writes sum to w as YAML.
func WriteSummary(w io.Writer, sum *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) // Match yq.
	err := enc.Encode(sum)
	if err != nil {
		return err
	}
	return enc.Close()
}
