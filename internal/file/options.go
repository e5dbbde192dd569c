package file

import (
	"fmt"
	"io/fs"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/seq"
)

// Options describe one song: where its MIDI file is and how to arrange it.
type Options struct {
	InputFile       string `yaml:"input_file"`
	InputFileSHA256 string `yaml:"input_file_sha256,omitempty"`

	Title     *string `yaml:"title,omitempty"`
	Author    *string `yaml:"author,omitempty"`
	Copyright *string `yaml:"copyright,omitempty"`
	Date      *string `yaml:"date,omitempty"`

	// SoloTrack plays only the track of this index.
	SoloTrack *int `yaml:"solo_track,omitempty"`

	// Repeat loops playback between two positions.
	Repeat *RepeatOptions `yaml:"repeat,omitempty"`

	// Tempo replaces the whole tempo map by a single tempo.
	Tempo *int `yaml:"tempo,omitempty"`

	// Filter and Params apply to every track.
	Filter *FilterOptions `yaml:"filter,omitempty"`
	Params map[string]int `yaml:"params,omitempty"`

	// Tracks override settings per track.
	Tracks []TrackOptions `yaml:"tracks,omitempty"`
}

type RepeatOptions struct {
	From midi.Clock `yaml:"from"`
	To   midi.Clock `yaml:"to"`
}

type TrackOptions struct {
	Index  int            `yaml:"index"`
	Title  *string        `yaml:"title,omitempty"`
	Mute   bool           `yaml:"mute,omitempty"`
	Filter *FilterOptions `yaml:"filter,omitempty"`
	Params map[string]int `yaml:"params,omitempty"`
}

// FilterOptions mirror the settings of a seq.Filter. Unset fields keep the
// filter's current value.
type FilterOptions struct {
	// Channels lets only these channels through.
	Channels []int `yaml:"channels,omitempty"`

	Channel       *int        `yaml:"channel,omitempty"`
	Port          *int        `yaml:"port,omitempty"`
	Offset        midi.Clock  `yaml:"offset,omitempty"`
	TimeScale     *int        `yaml:"time_scale,omitempty"`
	Quantise      midi.Clock  `yaml:"quantise,omitempty"`
	Transpose     int         `yaml:"transpose,omitempty"`
	MinLength     *midi.Clock `yaml:"min_length,omitempty"`
	MaxLength     *midi.Clock `yaml:"max_length,omitempty"`
	MinVelocity   *int        `yaml:"min_velocity,omitempty"`
	MaxVelocity   *int        `yaml:"max_velocity,omitempty"`
	VelocityScale *int        `yaml:"velocity_scale,omitempty"`
}

func ReadOptions(fsys fs.FS, optionsFile string) (*Options, error) {
	return readYAML[Options](fsys, optionsFile)
}

func WriteOptions(optionsFile string, options *Options) error {
	return writeYAML(optionsFile, options)
}

func (o *FilterOptions) validate() error {
	if o == nil {
		return nil
	}
	for _, ch := range o.Channels {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("filter channel %d out of range 0-15", ch)
		}
	}
	if o.Channel != nil && (*o.Channel < -1 || *o.Channel > 15) {
		return fmt.Errorf("filter target channel %d out of range -1-15", *o.Channel)
	}
	return nil
}

func (o *FilterOptions) apply(f *seq.Filter) {
	if o == nil {
		return
	}
	if len(o.Channels) > 0 {
		for ch := uint8(0); ch < 16; ch++ {
			f.SetChannelEnabled(ch, false)
		}
		for _, ch := range o.Channels {
			f.SetChannelEnabled(uint8(ch), true)
		}
	}
	if o.Channel != nil {
		f.SetChannel(*o.Channel)
	}
	if o.Port != nil {
		f.SetPort(*o.Port)
	}
	if o.Offset != 0 {
		f.SetOffset(o.Offset)
	}
	if o.TimeScale != nil {
		f.SetTimeScale(*o.TimeScale)
	}
	if o.Quantise != 0 {
		f.SetQuantise(o.Quantise)
	}
	if o.Transpose != 0 {
		f.SetTranspose(o.Transpose)
	}
	minLength, maxLength := f.Lengths()
	f.SetLengths(WithDefault(o.MinLength, minLength), WithDefault(o.MaxLength, maxLength))
	minVelocity, maxVelocity := f.Velocities()
	f.SetVelocities(WithDefault(o.MinVelocity, minVelocity), WithDefault(o.MaxVelocity, maxVelocity))
	if o.VelocityScale != nil {
		f.SetVelocityScale(*o.VelocityScale)
	}
}

func applyParams(params map[string]int, p *seq.Params) error {
	for name, v := range params {
		which, ok := seq.ParamByName(name)
		if !ok {
			return fmt.Errorf("unknown param %q", name)
		}
		p.Set(which, v)
	}
	return nil
}

// Apply arranges s according to o.
func (o *Options) Apply(s *seq.Song) error {
	if err := o.Filter.validate(); err != nil {
		return err
	}
	for _, to := range o.Tracks {
		if err := to.Filter.validate(); err != nil {
			return fmt.Errorf("track %d: %w", to.Index, err)
		}
	}
	s.Lock()
	defer s.Unlock()
	if o.Title != nil {
		s.SetTitle(*o.Title)
	}
	if o.Author != nil {
		s.SetAuthor(*o.Author)
	}
	if o.Copyright != nil {
		s.SetCopyright(*o.Copyright)
	}
	if o.Date != nil {
		s.SetDate(*o.Date)
	}
	if o.Tempo != nil {
		tempo := s.TempoTrack()
		tempo.Clear()
		tempo.Insert(seq.Tempo{BPM: *o.Tempo}, 0)
	}
	if o.Repeat != nil {
		if o.Repeat.From >= o.Repeat.To {
			return fmt.Errorf("repeat range %v-%v is empty", o.Repeat.From, o.Repeat.To)
		}
		s.SetFrom(o.Repeat.From)
		s.SetTo(o.Repeat.To)
		s.SetRepeat(true)
	}
	for i := 0; i < s.Size(); i++ {
		t := s.At(i)
		o.Filter.apply(t.Filter())
		if err := applyParams(o.Params, t.Params()); err != nil {
			return err
		}
	}
	for _, to := range o.Tracks {
		if to.Index < 0 || to.Index >= s.Size() {
			return fmt.Errorf("track %d out of range, song has %d tracks", to.Index, s.Size())
		}
		t := s.At(to.Index)
		if to.Title != nil {
			t.SetTitle(*to.Title)
		}
		if to.Mute {
			t.Filter().SetStatus(false)
		}
		to.Filter.apply(t.Filter())
		if err := applyParams(to.Params, t.Params()); err != nil {
			return fmt.Errorf("track %d: %w", to.Index, err)
		}
	}
	if o.SoloTrack != nil {
		if *o.SoloTrack < 0 || *o.SoloTrack >= s.Size() {
			return fmt.Errorf("solo track %d out of range, song has %d tracks", *o.SoloTrack, s.Size())
		}
		s.SetSolo(*o.SoloTrack)
	}
	return nil
}
