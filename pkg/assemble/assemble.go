package assemble

import (
	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

// Input is everything the pipeline extracted for one screenshot: the
// normalized time text with its engine confidence, and the catalog match
// outcome per name field with the raw text snapshot.
type Input struct {
	TimeText       string
	TimeConfidence float64
	RawTime        string

	Item    catalog.Match
	RawItem string

	Banner    catalog.Match
	RawBanner string

	ScreenshotID *uint
}

// Assembler applies the per-game confidence threshold and timestamp
// layouts. Overall confidence is the minimum field confidence; anything
// below the threshold, or with an unparsable timestamp, is flagged for
// review rather than discarded.
type Assembler struct {
	GameID      string
	Threshold   float64
	TimeLayouts []string
}

func New(cfg *gamecfg.GameConfig) *Assembler {
	return &Assembler{
		GameID:      cfg.GameID,
		Threshold:   cfg.ConfidenceThreshold,
		TimeLayouts: cfg.TimeLayouts,
	}
}

// Assemble always yields exactly one record per screenshot.
func (a *Assembler) Assemble(in Input) *models.DrawRecord {
	rec := &models.DrawRecord{
		GameID:       a.GameID,
		RawItem:      in.RawItem,
		RawBanner:    in.RawBanner,
		RawTime:      in.RawTime,
		ScreenshotID: in.ScreenshotID,
	}
	conf := in.TimeConfidence
	if in.Item.Confidence < conf {
		conf = in.Item.Confidence
	}
	if in.Banner.Confidence < conf {
		conf = in.Banner.Confidence
	}
	rec.Confidence = conf

	if in.Item.Ok {
		rec.ItemID = in.Item.Entry.ID
	}
	if in.Banner.Ok {
		rec.BannerID = in.Banner.Entry.ID
	}

	ts, err := ParseTimestamp(in.TimeText, a.TimeLayouts)
	if err == nil {
		rec.DrawTime = ts
	}

	if err == nil && rec.Resolved() && conf >= a.Threshold {
		rec.Status = models.StatusConfirmed
		rec.DedupKey = rec.ComputeDedupKey()
	} else {
		rec.Status = models.StatusNeedsReview
	}
	return rec
}
