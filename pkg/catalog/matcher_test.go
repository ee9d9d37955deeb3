package catalog

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]Entry{
		{ID: "amber", DisplayName: "Amber", Rarity: 4},
		{ID: "diluc", DisplayName: "Diluc", Rarity: 5, Aliases: []string{"Di1uc"}},
		{ID: "race", DisplayName: "Race"},
		{ID: "rose", DisplayName: "Rose"},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return c
}

func TestSimilarityRuneAware(t *testing.T) {
	// Cyrillic А differs from Latin A by one rune, not several bytes.
	if got := Similarity("Аmber", "Amber"); got != 0.8 {
		t.Fatalf("expected 0.8 got %v", got)
	}
	if got := Similarity("Amber", "Amber"); got != 1 {
		t.Fatalf("identical strings must score 1, got %v", got)
	}
	if got := Similarity("", "Amber"); got != 0 {
		t.Fatalf("empty vs non-empty must score 0, got %v", got)
	}
}

func TestMatchExactAndAlias(t *testing.T) {
	m := NewMatcher(testCatalog(t), 0.6)
	got := m.Match("Diluc")
	if !got.Ok || got.Entry.ID != "diluc" || got.Confidence != 1 {
		t.Fatalf("exact match failed: %+v", got)
	}
	got = m.Match("Di1uc")
	if !got.Ok || got.Entry.ID != "diluc" || got.Confidence != 1 {
		t.Fatalf("alias must match with confidence 1: %+v", got)
	}
}

func TestMatchFuzzyFloor(t *testing.T) {
	m := NewMatcher(testCatalog(t), 0.6)
	got := m.Match("Ambe")
	if !got.Ok || got.Entry.ID != "amber" || got.Confidence != 0.8 {
		t.Fatalf("fuzzy match failed: %+v", got)
	}
	if got := m.Match("Zzzzzzz"); got.Ok {
		t.Fatalf("garbage must not clear the floor: %+v", got)
	}
	if got := m.Match(""); got.Ok {
		t.Fatalf("empty text must not match")
	}
}

func TestMatchTieBreaks(t *testing.T) {
	// "Rase" is distance 1 from both Race and Rose. With no history the
	// lexicographically smaller ID wins.
	m := NewMatcher(testCatalog(t), 0.6)
	got := m.Match("Rase")
	if !got.Ok || got.Entry.ID != "race" {
		t.Fatalf("expected race on fresh tie, got %+v", got)
	}

	// A recent hit on rose flips the next tie toward it.
	m2 := NewMatcher(testCatalog(t), 0.6)
	if got := m2.Match("Rose"); !got.Ok || got.Entry.ID != "rose" {
		t.Fatalf("setup match failed: %+v", got)
	}
	got = m2.Match("Rase")
	if !got.Ok || got.Entry.ID != "rose" {
		t.Fatalf("expected recency to win the tie, got %+v", got)
	}
}

func TestMatchDeterministic(t *testing.T) {
	m := NewMatcher(testCatalog(t), 0.6)
	first := m.Match("Ambe")
	for i := 0; i < 10; i++ {
		if got := m.Match("Ambe"); got.Entry.ID != first.Entry.ID || got.Confidence != first.Confidence {
			t.Fatalf("iteration %d diverged: %+v vs %+v", i, got, first)
		}
	}
}
