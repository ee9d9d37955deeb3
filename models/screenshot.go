package models

import (
	"time"
)

// Screenshot tracks every image a batch touched, including failures, so
// nothing disappears without a trace.
type Screenshot struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	GameID    string `gorm:"size:64;not null;index"`
	FileName  string `gorm:"size:255;not null"`
	StorePath string `gorm:"column:store_path;size:512"`
	BatchID   string `gorm:"size:36;index"`
	// Mark the screenshot as failed (layout mismatch, unreadable file) so
	// it can be inspected instead of being silently skipped.
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
	RecordID     *uint  `gorm:"index"`
}
