package seq

import (
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// Part places a Phrase on a Track between start and end. The phrase may be
// repeated every repeat ticks, and is read from offset on.
type Part struct {
	start   midi.Clock
	end     midi.Clock
	repeat  midi.Clock
	offset  midi.Clock
	phrase  *Phrase
	filter  *Filter
	params  *Params
	display DisplayParams
	track   *Track

	phraseUnsub func()
	notifier    notify.Notifier[PartChange]
}

// NewPart returns an empty Part spanning [start, end).
func NewPart(start, end midi.Clock) (*Part, error) {
	if start > end || start < 0 {
		return nil, ErrPartTime
	}
	p := &Part{
		start:  start,
		end:    end,
		filter: NewFilter(),
		params: NewParams(),
	}
	p.filter.Subscribe(func(FilterChange) {
		p.notify(FilterAltered)
	})
	p.params.Subscribe(func(ParamsChange) {
		p.notify(ParamsAltered)
	})
	return p, nil
}

func (p *Part) notify(kind ChangeKind) {
	p.notifier.Notify(PartChange{Part: p, Kind: kind})
}

// Subscribe registers fn to be called on every change.
func (p *Part) Subscribe(fn func(PartChange)) func() {
	return p.notifier.Subscribe(fn)
}

func (p *Part) Start() midi.Clock      { return p.start }
func (p *Part) End() midi.Clock        { return p.end }
func (p *Part) Repeat() midi.Clock     { return p.repeat }
func (p *Part) Offset() midi.Clock     { return p.offset }
func (p *Part) Phrase() *Phrase        { return p.phrase }
func (p *Part) Filter() *Filter        { return p.filter }
func (p *Part) Params() *Params        { return p.params }
func (p *Part) Display() DisplayParams { return p.display }
func (p *Part) Track() *Track          { return p.track }

// LastClock returns the end of the part.
func (p *Part) LastClock() midi.Clock {
	return p.end
}

// SetStart moves the start of the part.
func (p *Part) SetStart(start midi.Clock) error {
	return p.SetStartEnd(start, p.end)
}

// SetEnd moves the end of the part.
func (p *Part) SetEnd(end midi.Clock) error {
	return p.SetStartEnd(p.start, end)
}

// SetStartEnd moves both ends of the part. If the part is in a Track, the
// new span must not overlap any other part of it; on failure nothing
// changes.
func (p *Part) SetStartEnd(start, end midi.Clock) error {
	if start > end || start < 0 {
		return ErrPartTime
	}
	if p.track != nil && p.track.overlaps(p, start, end) {
		return ErrPartOverlap
	}
	oldStart, oldEnd := p.start, p.end
	p.start, p.end = start, end
	if p.track != nil {
		p.track.resort()
	}
	if start != oldStart {
		p.notify(StartChanged)
	}
	if end != oldEnd {
		p.notify(EndChanged)
	}
	return nil
}

// SetRepeat sets the repeat period; 0 plays the phrase once.
func (p *Part) SetRepeat(r midi.Clock) {
	if r < 0 {
		r = 0
	}
	p.repeat = r
	p.notify(RepeatChanged)
}

// SetOffset sets the phrase time playback starts at.
func (p *Part) SetOffset(o midi.Clock) {
	if o < 0 {
		o = 0
	}
	p.offset = o
	p.notify(OffsetChanged)
}

// SetDisplay sets the part's display hints.
func (p *Part) SetDisplay(d DisplayParams) {
	p.display = d
	p.notify(DisplayChanged)
}

// SetPhrase makes the part play ph, which must be in a PhraseList. A nil
// phrase makes the part silent but for its Params.
func (p *Part) SetPhrase(ph *Phrase) error {
	if ph != nil && ph.list == nil {
		return ErrPhraseUnparented
	}
	if p.phraseUnsub != nil {
		p.phraseUnsub()
		p.phraseUnsub = nil
	}
	p.phrase = ph
	if ph != nil {
		p.phraseUnsub = ph.Subscribe(func(ev PhraseChange) {
			if ev.Kind != Deleted || p.phrase != ev.Phrase {
				return
			}
			p.phraseUnsub()
			p.phraseUnsub = nil
			p.phrase = nil
			p.notify(PhraseChanged)
		})
	}
	p.notify(PhraseChanged)
	return nil
}

// Iterator returns an Iterator over the part's output, starting at c.
func (p *Part) Iterator(c midi.Clock) Iterator {
	i := &partIterator{part: p}
	i.unsub = p.Subscribe(func(ev PartChange) {
		if ev.Kind == DisplayChanged {
			return
		}
		i.MoveTo(i.pos)
		i.changed()
	})
	i.MoveTo(c)
	return i
}

const (
	fromParams = iota
	fromPhrase
)

type partIterator struct {
	iterState
	part   *Part
	params Iterator
	phrase Iterator
	window midi.Clock
	from   midi.Clock
	src    int
	unsub  func()
}

func (i *partIterator) closeSources() {
	if i.params != nil {
		i.params.Close()
		i.params = nil
	}
	if i.phrase != nil {
		i.phrase.Close()
		i.phrase = nil
	}
}

func (i *partIterator) MoveTo(c midi.Clock) {
	i.closeSources()
	i.seek(c)
	p := i.part
	if p == nil || c >= p.end {
		i.finish()
		return
	}
	i.from = max(c, p.start)
	rel := i.from - p.start
	i.params = p.params.Iterator(rel)
	watch(i.params, i.refresh)
	i.window = 0
	if p.phrase != nil {
		// The filter moves events, so start early enough to catch every
		// event it maps to rel or later.
		u := max(p.filter.unmapTime(rel), 0)
		at := p.offset + u
		if p.repeat > 0 {
			i.window = u / p.repeat * p.repeat
			at = p.offset + u - i.window
		}
		i.phrase = p.phrase.Iterator(at)
		watch(i.phrase, i.refresh)
	}
	i.update()
}

func (i *partIterator) refresh() {
	i.update()
	i.changed()
}

// phraseEvent returns the next phrase event in part relative time, moving
// on to the next repeat window as needed.
func (i *partIterator) phraseEvent() (midi.Event, bool) {
	p := i.part
	for i.phrase != nil {
		if i.phrase.More() {
			e := i.phrase.Current()
			rel := e.Time - p.offset
			if p.repeat == 0 || rel < p.repeat {
				return e.Shift(i.window - p.offset), true
			}
		}
		if p.repeat == 0 {
			return midi.Event{}, false
		}
		i.window += p.repeat
		if i.window >= p.end-p.start {
			i.phrase.Close()
			i.phrase = nil
			break
		}
		i.phrase.MoveTo(p.offset)
		if !i.phrase.More() || i.phrase.Current().Time-p.offset >= p.repeat {
			// Nothing to play in any window.
			i.phrase.Close()
			i.phrase = nil
		}
	}
	return midi.Event{}, false
}

// update finds the next event the part plays.
func (i *partIterator) update() {
	p := i.part
	for p != nil {
		var (
			e   midi.Event
			src int
			ok  bool
		)
		if i.params != nil && i.params.More() {
			e, src, ok = i.params.Current(), fromParams, true
		} else if ev, more := i.phraseEvent(); more {
			e, src, ok = ev, fromPhrase, true
		}
		if !ok {
			break
		}
		i.src = src

		var out midi.Event
		if src == fromParams {
			out = p.filter.Filter(e)
			out.Time = e.Time
		} else {
			out = p.params.Filter(p.filter.Filter(e))
		}
		out = out.Shift(p.start)
		if out.Time >= p.end {
			if src == fromPhrase {
				i.phrase.Close()
				i.phrase = nil
				continue
			}
			break
		}
		if !out.Data.IsValid() {
			i.skip()
			continue
		}
		limit := p.end
		if p.repeat > 0 {
			limit = min(limit, p.start+i.window+p.repeat)
		}
		if out.Time < p.start {
			out.Time = p.start
		}
		if out.Time < i.from {
			i.skip()
			continue
		}
		if out.Paired() {
			out.OffTime = max(min(out.OffTime, limit), out.Time)
		}
		i.emit(out)
		return
	}
	i.finish()
}

func (i *partIterator) skip() {
	switch {
	case i.src == fromParams && i.params != nil:
		i.params.Next()
	case i.src == fromPhrase && i.phrase != nil:
		i.phrase.Next()
	}
}

func (i *partIterator) Next() {
	if !i.more {
		return
	}
	i.skip()
	i.update()
}

func (i *partIterator) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.closeSources()
	i.part = nil
	i.finish()
}
