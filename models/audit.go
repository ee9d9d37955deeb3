package models

import "time"

// AuditEntry records every review-status transition and every absorbed
// duplicate. Rejected records stay queryable here forever.
type AuditEntry struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	GameID     string       `gorm:"size:64;not null;index"`
	RecordID   uint         `gorm:"index;not null"`
	Actor      string       `gorm:"size:128"`
	FromStatus ReviewStatus `gorm:"size:32"`
	ToStatus   ReviewStatus `gorm:"size:32"`
	Detail     string       `gorm:"size:512"`
}
