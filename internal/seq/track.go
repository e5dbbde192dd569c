package seq

import (
	"sort"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// Track is a start-sorted list of non-overlapping Parts.
type Track struct {
	parts      []*Part
	partUnsubs map[*Part]func()
	title      string
	filter     *Filter
	params     *Params
	song       *Song
	notifier   notify.Notifier[TrackChange]
}

// NewTrack returns an empty Track.
func NewTrack() *Track {
	t := &Track{
		partUnsubs: map[*Part]func(){},
		filter:     NewFilter(),
		params:     NewParams(),
	}
	t.filter.Subscribe(func(FilterChange) {
		t.notify(FilterAltered, nil)
	})
	t.params.Subscribe(func(ParamsChange) {
		t.notify(ParamsAltered, nil)
	})
	return t
}

func (t *Track) notify(kind ChangeKind, p *Part) {
	t.notifier.Notify(TrackChange{Track: t, Kind: kind, Part: p})
}

// Subscribe registers fn to be called on every change.
func (t *Track) Subscribe(fn func(TrackChange)) func() {
	return t.notifier.Subscribe(fn)
}

func (t *Track) Title() string   { return t.title }
func (t *Track) Filter() *Filter { return t.filter }
func (t *Track) Params() *Params { return t.params }
func (t *Track) Song() *Song     { return t.song }

// SetTitle renames the track.
func (t *Track) SetTitle(title string) {
	t.title = title
	t.notify(TitleChanged, nil)
}

// Size returns the number of parts.
func (t *Track) Size() int {
	return len(t.parts)
}

// At returns the part at index i.
func (t *Track) At(i int) *Part {
	return t.parts[i]
}

// Index returns the index of the first part that ends after c, or Size if
// there is none.
func (t *Track) Index(c midi.Clock) int {
	return sort.Search(len(t.parts), func(i int) bool {
		return t.parts[i].end > c
	})
}

// PartIndex returns the index of p, or -1.
func (t *Track) PartIndex(p *Part) int {
	for i, q := range t.parts {
		if q == p {
			return i
		}
	}
	return -1
}

// LastClock returns the end of the last part, or 0.
func (t *Track) LastClock() midi.Clock {
	if len(t.parts) == 0 {
		return 0
	}
	return t.parts[len(t.parts)-1].end
}

// overlaps returns whether [start, end) intersects any part other than p.
func (t *Track) overlaps(p *Part, start, end midi.Clock) bool {
	for _, q := range t.parts {
		if q == p {
			continue
		}
		if start < q.end && q.start < end {
			return true
		}
		if start == end && start == q.start && q.start == q.end {
			return true
		}
	}
	return false
}

func (t *Track) resort() {
	sort.SliceStable(t.parts, func(i, j int) bool {
		return t.parts[i].start < t.parts[j].start
	})
}

// Insert adds p to the track.
func (t *Track) Insert(p *Part) error {
	if p.track != nil {
		return ErrPartAlreadyInserted
	}
	if t.overlaps(p, p.start, p.end) {
		return ErrPartOverlap
	}
	i := sort.Search(len(t.parts), func(i int) bool {
		return t.parts[i].start > p.start
	})
	t.parts = append(t.parts, nil)
	copy(t.parts[i+1:], t.parts[i:])
	t.parts[i] = p
	p.track = t
	t.partUnsubs[p] = p.Subscribe(func(ev PartChange) {
		if ev.Kind == DisplayChanged {
			return
		}
		t.notify(PartAltered, ev.Part)
	})
	t.notify(PartInserted, p)
	return nil
}

// Remove takes p out of the track.
func (t *Track) Remove(p *Part) error {
	i := t.PartIndex(p)
	if i < 0 {
		return ErrNoPartInserted
	}
	t.parts = append(t.parts[:i], t.parts[i+1:]...)
	if unsub := t.partUnsubs[p]; unsub != nil {
		unsub()
	}
	delete(t.partUnsubs, p)
	p.track = nil
	t.notify(PartRemoved, p)
	return nil
}

// Iterator returns an Iterator over the track's output, starting at c.
func (t *Track) Iterator(c midi.Clock) Iterator {
	i := &trackIterator{track: t}
	i.unsub = t.Subscribe(func(ev TrackChange) {
		if ev.Kind == TitleChanged {
			return
		}
		i.MoveTo(i.pos)
		i.changed()
	})
	i.MoveTo(c)
	return i
}

type trackIterator struct {
	iterState
	track   *Track
	params  Iterator
	part    Iterator
	partIdx int
	from    midi.Clock
	src     int
	unsub   func()
}

func (i *trackIterator) closeSources() {
	if i.params != nil {
		i.params.Close()
		i.params = nil
	}
	if i.part != nil {
		i.part.Close()
		i.part = nil
	}
}

func (i *trackIterator) MoveTo(c midi.Clock) {
	i.closeSources()
	i.seek(c)
	if i.track == nil {
		i.finish()
		return
	}
	i.from = max(c, 0)
	i.params = i.track.params.Iterator(i.from)
	watch(i.params, i.refresh)
	u := max(i.track.filter.unmapTime(i.from), 0)
	i.partIdx = i.track.Index(u)
	i.openPart(u)
	i.update()
}

// openPart opens the iterator of the part at partIdx, or of the first one
// after it that plays anything.
func (i *trackIterator) openPart(c midi.Clock) {
	for ; i.partIdx < len(i.track.parts); i.partIdx++ {
		p := i.track.parts[i.partIdx]
		it := p.Iterator(max(c, p.start))
		if it.More() {
			watch(it, i.refresh)
			i.part = it
			return
		}
		it.Close()
	}
}

func (i *trackIterator) refresh() {
	i.update()
	i.changed()
}

func (i *trackIterator) update() {
	t := i.track
	for t != nil {
		var e midi.Event
		switch {
		case i.params != nil && i.params.More():
			i.src = fromParams
			e = i.params.Current()
		case i.part != nil && i.part.More():
			i.src = fromPhrase
			e = i.part.Current()
			if e.Time >= t.parts[i.partIdx].end {
				i.nextPart()
				continue
			}
		case i.part != nil:
			i.nextPart()
			continue
		default:
			i.finish()
			return
		}

		var out midi.Event
		if i.src == fromParams {
			out = t.filter.Filter(e)
			out.Time = e.Time
		} else {
			out = t.params.Filter(t.filter.Filter(e))
		}
		if !out.Data.IsValid() {
			i.skip()
			continue
		}
		if out.Time < 0 {
			out.Time = 0
			if out.Paired() {
				out.OffTime = max(out.OffTime, 0)
			}
		}
		if out.Time < i.from {
			i.skip()
			continue
		}
		i.emit(out)
		return
	}
	i.finish()
}

func (i *trackIterator) nextPart() {
	i.part.Close()
	i.part = nil
	i.partIdx++
	i.openPart(0)
}

func (i *trackIterator) skip() {
	switch {
	case i.src == fromParams && i.params != nil:
		i.params.Next()
	case i.part != nil:
		i.part.Next()
	}
}

func (i *trackIterator) Next() {
	if !i.more {
		return
	}
	i.skip()
	i.update()
}

func (i *trackIterator) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.closeSources()
	i.track = nil
	i.finish()
}
