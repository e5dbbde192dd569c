package seq

// DisplayStyle selects how an editor draws a Part or Phrase.
type DisplayStyle int

const (
	DisplayNone DisplayStyle = iota
	DisplayFull
	DisplayColour
	DisplayPreset
)

// DisplayParams are drawing hints for editors. They do not affect playback.
type DisplayParams struct {
	Style  DisplayStyle
	Red    uint8
	Green  uint8
	Blue   uint8
	Preset int
}
