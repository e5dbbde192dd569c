package seq

import (
	"sync"

	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/notify"
)

// NoSolo is the solo track index when every track plays.
const NoSolo = -1

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Song is a whole piece: its tracks, meta tracks and phrases.
//
// A Song is not safe for concurrent use. Callers that share one between
// goroutines install a lock with SetLocker and hold it, through Lock and
// Unlock, around every call into the song and its parts.
type Song struct {
	tracks      []*Track
	trackUnsubs map[*Track]func()
	tempo       *TempoTrack
	timeSig     *TimeSigTrack
	keySig      *KeySigTrack
	flags       *FlagTrack
	phrases     *PhraseList

	title     string
	author    string
	copyright string
	date      string
	solo      int
	repeat    bool
	from      midi.Clock
	to        midi.Clock
	lastClock midi.Clock

	locker   sync.Locker
	notifier notify.Notifier[SongChange]
}

// NewSong returns a Song with numTracks empty tracks.
func NewSong(numTracks int) *Song {
	s := &Song{
		trackUnsubs: map[*Track]func(){},
		tempo:       NewTempoTrack(),
		timeSig:     NewTimeSigTrack(),
		keySig:      NewKeySigTrack(),
		flags:       NewFlagTrack(),
		phrases:     NewPhraseList(),
		solo:        NoSolo,
		to:          midi.PPQN * 4,
		locker:      noLock{},
	}
	for n := 0; n < numTracks; n++ {
		s.Insert(NewTrack(), -1)
	}
	return s
}

// SetLocker installs the lock returned by Lock and Unlock.
func (s *Song) SetLocker(l sync.Locker) {
	if l == nil {
		l = noLock{}
	}
	s.locker = l
}

// Lock acquires the song's lock.
func (s *Song) Lock() {
	s.locker.Lock()
}

// Unlock releases the song's lock.
func (s *Song) Unlock() {
	s.locker.Unlock()
}

func (s *Song) notify(kind ChangeKind) {
	s.notifier.Notify(SongChange{Song: s, Kind: kind, Index: -1})
}

// Subscribe registers fn to be called on every change.
func (s *Song) Subscribe(fn func(SongChange)) func() {
	return s.notifier.Subscribe(fn)
}

func (s *Song) TempoTrack() *TempoTrack     { return s.tempo }
func (s *Song) TimeSigTrack() *TimeSigTrack { return s.timeSig }
func (s *Song) KeySigTrack() *KeySigTrack   { return s.keySig }
func (s *Song) FlagTrack() *FlagTrack       { return s.flags }
func (s *Song) PhraseList() *PhraseList     { return s.phrases }

func (s *Song) Title() string         { return s.title }
func (s *Song) Author() string        { return s.author }
func (s *Song) Copyright() string     { return s.copyright }
func (s *Song) Date() string          { return s.date }
func (s *Song) Solo() int             { return s.solo }
func (s *Song) Repeat() bool          { return s.repeat }
func (s *Song) From() midi.Clock      { return s.from }
func (s *Song) To() midi.Clock        { return s.to }
func (s *Song) LastClock() midi.Clock { return s.lastClock }
func (s *Song) Size() int             { return len(s.tracks) }
func (s *Song) At(i int) *Track       { return s.tracks[i] }
func (s *Song) Tracks() []*Track      { return append([]*Track(nil), s.tracks...) }

func (s *Song) setString(dst *string, v string, kind ChangeKind) {
	if *dst == v {
		return
	}
	*dst = v
	s.notify(kind)
}

func (s *Song) SetTitle(v string)     { s.setString(&s.title, v, TitleChanged) }
func (s *Song) SetAuthor(v string)    { s.setString(&s.author, v, AuthorChanged) }
func (s *Song) SetCopyright(v string) { s.setString(&s.copyright, v, CopyrightChanged) }
func (s *Song) SetDate(v string)      { s.setString(&s.date, v, DateChanged) }

// SetSolo makes only track n audible; NoSolo makes every track audible.
func (s *Song) SetSolo(n int) {
	if n < NoSolo {
		n = NoSolo
	}
	if s.solo == n {
		return
	}
	s.solo = n
	s.notify(SoloChanged)
}

// SetRepeat enables or disables looping between From and To.
func (s *Song) SetRepeat(r bool) {
	if s.repeat == r {
		return
	}
	s.repeat = r
	s.notify(RepeatChanged)
}

// SetFrom sets the start of the repeat region.
func (s *Song) SetFrom(c midi.Clock) {
	s.from = max(c, 0)
	s.notify(FromChanged)
}

// SetTo sets the end of the repeat region.
func (s *Song) SetTo(c midi.Clock) {
	s.to = max(c, 0)
	s.notify(ToChanged)
}

// TrackIndex returns the index of t, or -1.
func (s *Song) TrackIndex(t *Track) int {
	for i, u := range s.tracks {
		if u == t {
			return i
		}
	}
	return -1
}

// Insert adds t at index n. A negative or too large n appends.
func (s *Song) Insert(t *Track, n int) error {
	if t.song != nil {
		return ErrTrackAlreadyInserted
	}
	if n < 0 || n > len(s.tracks) {
		n = len(s.tracks)
	}
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[n+1:], s.tracks[n:])
	s.tracks[n] = t
	t.song = s
	if s.solo >= n {
		s.solo++
	}
	s.trackUnsubs[t] = t.Subscribe(func(ev TrackChange) {
		switch ev.Kind {
		case PartInserted, PartRemoved, PartAltered:
			s.updateLastClock()
		}
	})
	s.notifier.Notify(SongChange{Song: s, Kind: TrackInserted, Track: t, Index: n})
	s.updateLastClock()
	return nil
}

// Remove takes t out of the song and returns its former index, or -1 if t
// was not in the song.
func (s *Song) Remove(t *Track) int {
	n := s.TrackIndex(t)
	if n < 0 {
		return -1
	}
	s.RemoveAt(n)
	return n
}

// RemoveAt takes the track at index n out of the song and returns it.
func (s *Song) RemoveAt(n int) *Track {
	if n < 0 || n >= len(s.tracks) {
		return nil
	}
	t := s.tracks[n]
	s.tracks = append(s.tracks[:n], s.tracks[n+1:]...)
	if unsub := s.trackUnsubs[t]; unsub != nil {
		unsub()
	}
	delete(s.trackUnsubs, t)
	t.song = nil
	switch {
	case s.solo == n:
		s.solo = NoSolo
	case s.solo > n:
		s.solo--
	}
	s.notifier.Notify(SongChange{Song: s, Kind: TrackRemoved, Track: t, Index: n})
	s.updateLastClock()
	return t
}

func (s *Song) updateLastClock() {
	var last midi.Clock
	for _, t := range s.tracks {
		last = max(last, t.LastClock())
	}
	if last == s.lastClock {
		return
	}
	s.lastClock = last
	s.notify(LastClockChanged)
}

// Iterator returns an Iterator over the whole song, starting at c. On equal
// times, tempo comes before time signature, key signature, the repeat jump
// and the tracks in order.
func (s *Song) Iterator(c midi.Clock) Iterator {
	i := &songIterator{song: s}
	i.unsub = s.Subscribe(func(ev SongChange) {
		switch ev.Kind {
		case TrackInserted, TrackRemoved:
			i.MoveTo(i.pos)
			i.changed()
		case SoloChanged:
			i.refresh()
		}
	})
	i.MoveTo(c)
	return i
}

const firstTrackSource = 4

type songIterator struct {
	iterState
	song  *Song
	m     merger
	unsub func()
}

func (i *songIterator) MoveTo(c midi.Clock) {
	i.m.close()
	i.seek(c)
	s := i.song
	if s == nil {
		i.finish()
		return
	}
	i.m.add(s.tempo.Iterator(c), i.refresh)
	i.m.add(s.timeSig.Iterator(c), i.refresh)
	i.m.add(s.keySig.Iterator(c), i.refresh)
	i.m.add(newRepeatIterator(s, c), i.refresh)
	for _, t := range s.tracks {
		i.m.add(t.Iterator(c), i.refresh)
	}
	i.update()
}

func (i *songIterator) refresh() {
	i.update()
	i.changed()
}

func (i *songIterator) update() {
	if !i.m.pick() {
		i.finish()
		return
	}
	e := i.m.current()
	if solo := i.song.solo; solo != NoSolo && i.m.winner >= firstTrackSource && i.m.winner-firstTrackSource != solo {
		e.Data.Status = midi.Invalid
		e.OffData.Status = midi.Invalid
	}
	i.emit(e)
}

func (i *songIterator) Next() {
	if !i.more {
		return
	}
	i.m.advance()
	i.update()
}

func (i *songIterator) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.m.close()
	i.song = nil
	i.finish()
}

// repeatIterator produces the jump from To back to From while the song
// repeats.
type repeatIterator struct {
	iterState
	song  *Song
	unsub func()
}

func newRepeatIterator(s *Song, c midi.Clock) *repeatIterator {
	i := &repeatIterator{song: s}
	i.unsub = s.Subscribe(func(ev SongChange) {
		switch ev.Kind {
		case RepeatChanged, FromChanged, ToChanged:
			i.MoveTo(i.pos)
			i.changed()
		}
	})
	i.MoveTo(c)
	return i
}

func (i *repeatIterator) MoveTo(c midi.Clock) {
	i.seek(c)
	s := i.song
	if s == nil || !s.repeat || s.from >= s.to || c > s.to {
		i.finish()
		return
	}
	e := midi.NewEvent(midi.MoveToCommand(), s.to)
	e.OffTime = s.from
	i.emit(e)
}

func (i *repeatIterator) Next() {
	i.finish()
}

func (i *repeatIterator) Close() {
	if i.unsub != nil {
		i.unsub()
		i.unsub = nil
	}
	i.song = nil
	i.finish()
}
