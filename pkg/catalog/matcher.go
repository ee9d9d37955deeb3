package catalog

import (
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Match is the outcome of resolving one piece of normalized OCR text.
// Confidence is 1.0 for exact/alias hits, the normalized similarity for
// fuzzy hits, and 0 when nothing clears the floor.
type Match struct {
	Entry      Entry
	Confidence float64
	Ok         bool
}

// Matcher resolves text against a single catalog. Exact lookups come
// first; otherwise the best edit-distance candidate above the floor
// wins. Among equal scores the entry matched most recently in the
// current batch is preferred, then the lexicographically smaller ID.
// Safe for concurrent use by batch workers.
type Matcher struct {
	cat   *Catalog
	floor float64

	mu       sync.Mutex
	lastSeen map[string]int64
	seq      int64
}

func NewMatcher(cat *Catalog, floor float64) *Matcher {
	return &Matcher{
		cat:      cat,
		floor:    floor,
		lastSeen: make(map[string]int64),
	}
}

// Similarity is 1 - dist/maxRuneLen, computed over runes so confusable
// non-ASCII characters count as a single edit.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	if d >= max {
		return 0
	}
	return 1 - float64(d)/float64(max)
}

func (m *Matcher) Match(text string) Match {
	if text == "" {
		return Match{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.cat.Lookup(text); ok {
		m.touch(e.ID)
		return Match{Entry: e, Confidence: 1, Ok: true}
	}

	var best Match
	for _, e := range m.cat.All() {
		score := Similarity(text, e.DisplayName)
		for _, a := range e.Aliases {
			if s := Similarity(text, a); s > score {
				score = s
			}
		}
		if score < m.floor {
			continue
		}
		switch {
		case score > best.Confidence:
			best = Match{Entry: e, Confidence: score, Ok: true}
		case score == best.Confidence && best.Ok:
			if m.prefer(e.ID, best.Entry.ID) {
				best.Entry = e
			}
		}
	}
	if best.Ok {
		m.touch(best.Entry.ID)
	}
	return best
}

// prefer reports whether candidate should replace incumbent on a score
// tie: more recently matched wins, then the smaller ID.
func (m *Matcher) prefer(candidate, incumbent string) bool {
	cs, is := m.lastSeen[candidate], m.lastSeen[incumbent]
	if cs != is {
		return cs > is
	}
	return candidate < incumbent
}

func (m *Matcher) touch(id string) {
	m.seq++
	m.lastSeen[id] = m.seq
}
