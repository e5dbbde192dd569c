package seq

import "errors"

// Structural errors. A mutator that returns one of these left the model as
// it was before the call.
var (
	ErrTrackAlreadyInserted  = errors.New("track already inserted in a song")
	ErrPartAlreadyInserted   = errors.New("part already inserted in a track")
	ErrPartOverlap           = errors.New("part overlaps another part")
	ErrNoPartInserted        = errors.New("part is not inserted in this track")
	ErrPhraseUnparented      = errors.New("phrase is not in a phrase list")
	ErrPhraseNameExists      = errors.New("phrase name already exists")
	ErrPhraseAlreadyInserted = errors.New("phrase already inserted in a phrase list")
	ErrInvalidPhraseName     = errors.New("invalid phrase name")
	ErrPartTime              = errors.New("part start is after its end")
)
