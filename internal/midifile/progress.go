package midifile

// Progress receives progress reports from long imports and exports.
type Progress interface {
	ProgressRange(min, max int)
	Progress(current int)
}

type noProgress struct{}

func (noProgress) ProgressRange(min, max int) {}
func (noProgress) Progress(current int)       {}

func orNoProgress(p Progress) Progress {
	if p == nil {
		return noProgress{}
	}
	return p
}
