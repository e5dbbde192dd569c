package seq

import (
	"fmt"
	"sort"

	"github.com/divVerent/midiseq/internal/notify"
)

// DefaultPhraseTitle is the base for generated phrase titles.
const DefaultPhraseTitle = "Phrase"

// PhraseList owns a set of uniquely titled phrases, sorted by title.
type PhraseList struct {
	phrases  []*Phrase
	notifier notify.Notifier[PhraseListChange]
}

// NewPhraseList returns an empty PhraseList.
func NewPhraseList() *PhraseList {
	return &PhraseList{}
}

// Size returns the number of phrases.
func (l *PhraseList) Size() int {
	return len(l.phrases)
}

// At returns the phrase at index i.
func (l *PhraseList) At(i int) *Phrase {
	return l.phrases[i]
}

func (l *PhraseList) search(title string) int {
	return sort.Search(len(l.phrases), func(i int) bool {
		return l.phrases[i].title >= title
	})
}

// Phrase returns the phrase titled title, or nil.
func (l *PhraseList) Phrase(title string) *Phrase {
	i := l.search(title)
	if i < len(l.phrases) && l.phrases[i].title == title {
		return l.phrases[i]
	}
	return nil
}

// Index returns the index of p, or -1.
func (l *PhraseList) Index(p *Phrase) int {
	for i, q := range l.phrases {
		if q == p {
			return i
		}
	}
	return -1
}

// Insert adds p to the list.
func (l *PhraseList) Insert(p *Phrase) error {
	if p.list != nil || p.deleted {
		return ErrPhraseAlreadyInserted
	}
	if p.title == "" {
		return ErrInvalidPhraseName
	}
	if l.Phrase(p.title) != nil {
		return ErrPhraseNameExists
	}
	l.insertSorted(p)
	p.list = l
	l.notifier.Notify(PhraseListChange{List: l, Kind: Inserted, Phrase: p})
	return nil
}

func (l *PhraseList) insertSorted(p *Phrase) {
	i := l.search(p.title)
	l.phrases = append(l.phrases, nil)
	copy(l.phrases[i+1:], l.phrases[i:])
	l.phrases[i] = p
}

func (l *PhraseList) take(p *Phrase) bool {
	i := l.Index(p)
	if i < 0 {
		return false
	}
	l.phrases = append(l.phrases[:i], l.phrases[i+1:]...)
	return true
}

// Remove takes p out of the list without deleting it.
func (l *PhraseList) Remove(p *Phrase) {
	if !l.take(p) {
		return
	}
	p.list = nil
	l.notifier.Notify(PhraseListChange{List: l, Kind: Removed, Phrase: p})
}

// Erase takes p out of the list and deletes it. Parts using p lose their
// phrase.
func (l *PhraseList) Erase(p *Phrase) {
	if !l.take(p) {
		return
	}
	l.notifier.Notify(PhraseListChange{List: l, Kind: Removed, Phrase: p})
	p.delete()
}

func (l *PhraseList) retitled(p *Phrase) {
	if l.take(p) {
		l.insertSorted(p)
	}
	l.notifier.Notify(PhraseListChange{List: l, Kind: TitleChanged, Phrase: p})
}

// NewPhraseTitle returns base if no phrase uses it, else the first of
// "base 1", "base 2" and so on that is free.
func (l *PhraseList) NewPhraseTitle(base string) string {
	if base == "" {
		base = DefaultPhraseTitle
	}
	if l.Phrase(base) == nil {
		return base
	}
	for n := 1; ; n++ {
		title := fmt.Sprintf("%s %d", base, n)
		if l.Phrase(title) == nil {
			return title
		}
	}
}

// Subscribe registers fn to be called on every change.
func (l *PhraseList) Subscribe(fn func(PhraseListChange)) func() {
	return l.notifier.Subscribe(fn)
}
