package assemble

import (
	"testing"
	"time"

	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

func testAssembler() *Assembler {
	return &Assembler{
		GameID:      "genshin",
		Threshold:   0.8,
		TimeLayouts: layouts,
	}
}

func match(id string, conf float64) catalog.Match {
	return catalog.Match{Entry: catalog.Entry{ID: id}, Confidence: conf, Ok: true}
}

func TestAssembleConfirmed(t *testing.T) {
	rec := testAssembler().Assemble(Input{
		TimeText:       "2024-05-01 12:30:45",
		TimeConfidence: 1,
		Item:           match("amber", 1),
		Banner:         match("standard", 0.9),
	})
	if rec.Status != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s (conf=%v)", rec.Status, rec.Confidence)
	}
	if rec.Confidence != 0.9 {
		t.Fatalf("confidence must be the field minimum, got %v", rec.Confidence)
	}
	if rec.DedupKey == "" || rec.DedupKey != rec.ComputeDedupKey() {
		t.Fatalf("confirmed record must carry its dedup key")
	}
	want := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	if !rec.DrawTime.Equal(want) {
		t.Fatalf("draw time %v", rec.DrawTime)
	}
}

func TestAssembleBelowThreshold(t *testing.T) {
	rec := testAssembler().Assemble(Input{
		TimeText:       "2024-05-01 12:30:45",
		TimeConfidence: 1,
		Item:           match("amber", 0.7), // below 0.8
		Banner:         match("standard", 1),
	})
	if rec.Status != models.StatusNeedsReview {
		t.Fatalf("expected needs_review, got %s", rec.Status)
	}
	if rec.ItemID != "amber" || rec.BannerID != "standard" {
		t.Fatalf("resolved ids must be kept for the reviewer: %+v", rec)
	}
	if rec.DedupKey != "" {
		t.Fatalf("flagged records must not carry a dedup key")
	}
}

func TestAssembleUnmatchedField(t *testing.T) {
	rec := testAssembler().Assemble(Input{
		TimeText:       "2024-05-01 12:30:45",
		TimeConfidence: 1,
		Item:           match("amber", 1),
		Banner:         catalog.Match{}, // nothing cleared the floor
		RawBanner:      "??进??",
	})
	if rec.Status != models.StatusNeedsReview {
		t.Fatalf("expected needs_review, got %s", rec.Status)
	}
	if rec.BannerID != "" || rec.RawBanner != "??进??" {
		t.Fatalf("raw text must survive for review: %+v", rec)
	}
	if rec.Confidence != 0 {
		t.Fatalf("missing field drags confidence to 0, got %v", rec.Confidence)
	}
}

func TestAssembleBadTimestamp(t *testing.T) {
	rec := testAssembler().Assemble(Input{
		TimeText:       "N/A",
		TimeConfidence: 1,
		RawTime:        "N/A",
		Item:           match("amber", 1),
		Banner:         match("standard", 1),
	})
	if rec.Status != models.StatusNeedsReview {
		t.Fatalf("unparsable timestamps must flag, got %s", rec.Status)
	}
	if !rec.DrawTime.IsZero() {
		t.Fatalf("draw time must stay zero, got %v", rec.DrawTime)
	}
}

func TestAssembleFromConfigDefaults(t *testing.T) {
	cfg := &gamecfg.GameConfig{
		GameID:              "genshin",
		ConfidenceThreshold: 0.8,
		TimeLayouts:         gamecfg.DefaultTimeLayouts,
	}
	a := New(cfg)
	rec := a.Assemble(Input{
		TimeText:       "2024-5-1",
		TimeConfidence: 1,
		Item:           match("amber", 1),
		Banner:         match("standard", 1),
	})
	if rec.Status != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", rec.Status)
	}
	if rec.GameID != "genshin" {
		t.Fatalf("game id not carried: %+v", rec)
	}
}
