package assemble

import (
	"errors"
	"testing"
	"time"
)

var layouts = []string{"2006-1-2 15:04:05", "2006-1-2 15:04", "2006-1-2"}

func mustParse(t *testing.T, raw string) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(raw, layouts)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return ts
}

func TestParseTimestampSeparatorVariants(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	for _, raw := range []string{
		"2024-05-01 12:30:45",
		"2024/05/01 12:30:45",
		"2024.05.01 12:30:45",
		"2024-05-01T12:30:45",
		"2024-5-1 12:30:45",
	} {
		if got := mustParse(t, raw); !got.Equal(want) {
			t.Fatalf("%q parsed to %v", raw, got)
		}
	}
}

func TestParseTimestampCJKDate(t *testing.T) {
	got := mustParse(t, "2024年5月1日 12:30")
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseTimestampDateOnly(t *testing.T) {
	got := mustParse(t, "2024-05-01")
	if got.Year() != 2024 || got.Month() != 5 || got.Day() != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestParseTimestampDigitFallback(t *testing.T) {
	// heavy OCR mangling leaves only digits usable
	got := mustParse(t, "2024:05:01:12:30:45")
	want := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	got = mustParse(t, "2024 05 01")
	if got.Year() != 2024 || got.Month() != 5 || got.Day() != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestParseTimestampFailure(t *testing.T) {
	for _, raw := range []string{"", "N/A", "gibberish", "99-99"} {
		if _, err := ParseTimestamp(raw, layouts); !errors.Is(err, ErrTimestampParse) {
			t.Fatalf("%q: expected ErrTimestampParse got %v", raw, err)
		}
	}
}
