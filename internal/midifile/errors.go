package midifile

import "errors"

var (
	ErrCouldNotOpenFile = errors.New("could not open file")
	ErrInvalidFileType  = errors.New("not a standard MIDI file")
	ErrFileFormatBroken = errors.New("MIDI file is broken")
	ErrImport           = errors.New("MIDI file import failed")
	ErrExport           = errors.New("MIDI file export failed")
)
