package file

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midiseq/internal/midifile"
)

// Config holds the settings shared by every song.
type Config struct {
	// Format of written MIDI files, 0 or 1.
	Format *int `yaml:"format,omitempty"`

	// Compact enables running status in written MIDI files.
	Compact bool `yaml:"compact,omitempty"`

	// Charset of text meta events, see midifile.Charsets.
	Charset string `yaml:"charset,omitempty"`

	// Password of age encrypted song archives.
	Password string `yaml:"password,omitempty"`

	// Port is a regular expression selecting the player's output port.
	Port string `yaml:"port,omitempty"`

	// PreferredPort is the name of the port used last time.
	PreferredPort string `yaml:"preferred_port,omitempty"`

	// TempoFactor scales the playback speed.
	TempoFactor *float64 `yaml:"tempo_factor,omitempty"`
}

// WithDefault returns *p, or def if p is nil.
func WithDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// ImportOptions returns the midifile import settings of c.
func (c *Config) ImportOptions() midifile.ImportOptions {
	return midifile.ImportOptions{Charset: c.Charset}
}

// ExportOptions returns the midifile export settings of c.
func (c *Config) ExportOptions() midifile.ExportOptions {
	return midifile.ExportOptions{
		Format:  WithDefault(c.Format, 1),
		Compact: c.Compact,
		Charset: c.Charset,
	}
}

func readYAML[T any](fsys fs.FS, name string) (*T, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", name, err)
	}
	defer f.Close()
	var v T
	err = yaml.NewDecoder(f).Decode(&v)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", name, err)
	}
	return &v, nil
}

func writeYAML(name string, v any) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not recreate %v: %w", name, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	err = enc.Encode(v)
	if err != nil {
		return fmt.Errorf("could not encode %v: %w", name, err)
	}
	return enc.Close()
}

func ReadConfig(fsys fs.FS, configFile string) (*Config, error) {
	return readYAML[Config](fsys, configFile)
}

func WriteConfig(configFile string, config *Config) error {
	return writeYAML(configFile, config)
}
