package seq

import "fmt"

// ChangeKind says what happened to a model object.
type ChangeKind int

const (
	Altered ChangeKind = iota
	Deleted
	TitleChanged
	DisplayChanged
	Inserted
	Removed
	Erased
	StatusChanged
	Reset
	Tidied
	SelectionChanged
	ModifiedChanged
	StartChanged
	EndChanged
	RepeatChanged
	OffsetChanged
	PhraseChanged
	FilterAltered
	ParamsAltered
	PartInserted
	PartRemoved
	PartAltered
	AuthorChanged
	CopyrightChanged
	DateChanged
	SoloChanged
	FromChanged
	ToChanged
	TrackInserted
	TrackRemoved
	LastClockChanged
)

var changeKindNames = [...]string{
	"Altered", "Deleted", "TitleChanged", "DisplayChanged", "Inserted",
	"Removed", "Erased", "StatusChanged", "Reset", "Tidied",
	"SelectionChanged", "ModifiedChanged", "StartChanged", "EndChanged",
	"RepeatChanged", "OffsetChanged", "PhraseChanged", "FilterAltered",
	"ParamsAltered", "PartInserted", "PartRemoved", "PartAltered",
	"AuthorChanged", "CopyrightChanged", "DateChanged", "SoloChanged",
	"FromChanged", "ToChanged", "TrackInserted", "TrackRemoved",
	"LastClockChanged",
}

func (k ChangeKind) String() string {
	if k >= 0 && int(k) < len(changeKindNames) {
		return changeKindNames[k]
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// EventTrackChange reports a change to an EventTrack. Index is the affected
// element for Inserted, Erased and Altered.
type EventTrackChange struct {
	Kind  ChangeKind
	Index int
}

// PhraseChange reports a change to a Phrase.
type PhraseChange struct {
	Phrase *Phrase
	Kind   ChangeKind
}

// PhraseListChange reports a change to a PhraseList.
type PhraseListChange struct {
	List   *PhraseList
	Kind   ChangeKind
	Phrase *Phrase
}

// PhraseEditChange reports a change to a PhraseEdit. Index is the affected
// event for Inserted and Erased.
type PhraseEditChange struct {
	Edit  *PhraseEdit
	Kind  ChangeKind
	Index int
}

// ParamsChange reports a change to a Params.
type ParamsChange struct {
	Params *Params
}

// FilterChange reports a change to a Filter.
type FilterChange struct {
	Filter *Filter
}

// PartChange reports a change to a Part.
type PartChange struct {
	Part *Part
	Kind ChangeKind
}

// TrackChange reports a change to a Track. Part is set for the Part* kinds.
type TrackChange struct {
	Track *Track
	Kind  ChangeKind
	Part  *Part
}

// SongChange reports a change to a Song. Track and Index are set for
// TrackInserted and TrackRemoved.
type SongChange struct {
	Song  *Song
	Kind  ChangeKind
	Track *Track
	Index int
}
