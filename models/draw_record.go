package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ReviewStatus tracks the human-correction state of a draw record.
type ReviewStatus string

const (
	StatusConfirmed   ReviewStatus = "confirmed"
	StatusNeedsReview ReviewStatus = "needs_review"
	StatusRejected    ReviewStatus = "rejected"
)

// DrawRecord is one gacha draw extracted from a screenshot. Confirmed
// records form the per-game history ledger; needs_review records sit in
// the review queue until a human confirms or rejects them.
type DrawRecord struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	GameID    string    `gorm:"size:64;not null;index"`
	DrawTime  time.Time `gorm:"index"`
	ItemID    string    `gorm:"size:128"`
	BannerID  string    `gorm:"size:128"`
	// Raw OCR snapshot retained for review and audit.
	RawItem   string `gorm:"size:255"`
	RawBanner string `gorm:"size:255"`
	RawTime   string `gorm:"size:255"`

	Confidence float64
	Status     ReviewStatus `gorm:"size:32;not null;index"`
	// DedupKey is content-derived; uniqueness is enforced for confirmed
	// rows only (partial index created in initDB).
	DedupKey     string `gorm:"size:64;index"`
	ScreenshotID *uint  `gorm:"index"`
}

// ComputeDedupKey derives the ledger dedup key from
// (gameID, drawTime, itemID, bannerID).
func (r *DrawRecord) ComputeDedupKey() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s", r.GameID, r.DrawTime.Unix(), r.ItemID, r.BannerID)))
	return hex.EncodeToString(sum[:])
}

// Resolved reports whether both catalog references are present.
func (r *DrawRecord) Resolved() bool {
	return r.ItemID != "" && r.BannerID != ""
}
