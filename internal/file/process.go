package file

import (
	"crypto/sha256"
	"fmt"
	"io/fs"

	"github.com/divVerent/midiseq/internal/midifile"
	"github.com/divVerent/midiseq/internal/seq"
)

// Process loads the MIDI file named by options from fsys and arranges it. If
// options carry no checksum yet, the one of the input is filled in.
func Process(fsys fs.FS, config *Config, options *Options) (*seq.Song, midifile.Info, error) {
	inBytes, err := fs.ReadFile(fsys, options.InputFile)
	if err != nil {
		return nil, midifile.Info{}, fmt.Errorf("could not read %v: %w", options.InputFile, err)
	}

	sum := fmt.Sprintf("%x", sha256.Sum256(inBytes))

	if options.InputFileSHA256 != "" && options.InputFileSHA256 != sum {
		return nil, midifile.Info{}, fmt.Errorf("mismatching checksum of %v: got %v, want %v", options.InputFile, sum, options.InputFileSHA256)
	}

	song, info, err := midifile.Import(inBytes, config.ImportOptions())
	if err != nil {
		return nil, info, fmt.Errorf("could not parse %v: %w", options.InputFile, err)
	}

	err = options.Apply(song)
	if err != nil {
		return nil, info, fmt.Errorf("could not arrange %v: %w", options.InputFile, err)
	}

	options.InputFileSHA256 = sum
	return song, info, nil
}

// Save writes song as a MIDI file, encrypted if name ends in .age.
func Save(name string, song *seq.Song, config *Config) error {
	song.Lock()
	data, err := midifile.Encode(song, config.ExportOptions())
	song.Unlock()
	if err != nil {
		return fmt.Errorf("could not encode %v: %w", name, err)
	}
	return WriteFile(name, data, config.Password)
}
