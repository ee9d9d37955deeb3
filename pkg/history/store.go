package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Coxwtwo/gacha-ocr/models"
)

// ErrNotPending is returned by Confirm and Reject when the target record
// has already left the review queue.
var ErrNotPending = errors.New("record is not pending review")

// Store is the postgres-backed implementation of the ledger plus the
// review queue and audit log. Batch appends are serialized by the runner
// (single collector goroutine), so the existence check inside a
// transaction is sufficient for the dedup invariant; the partial unique
// index created at migration time backstops it.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	if err := validateForLedger(rec); err != nil {
		return false, err
	}
	rec.DedupKey = rec.ComputeDedupKey()
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&models.DrawRecord{}).
			Where("game_id = ? AND dedup_key = ? AND status = ?", rec.GameID, rec.DedupKey, models.StatusConfirmed).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			log.Debug().Str("game", rec.GameID).Str("key", rec.DedupKey).Msg("duplicate record absorbed")
			return nil
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) Slice(ctx context.Context, gameID string, from, to time.Time) ([]models.DrawRecord, error) {
	q := s.db.WithContext(ctx).
		Where("game_id = ? AND status = ?", gameID, models.StatusConfirmed)
	if !from.IsZero() {
		q = q.Where("draw_time >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("draw_time <= ?", to)
	}
	var out []models.DrawRecord
	if err := q.Order("draw_time asc, id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// QueueReview persists a flagged record so a human can correct it.
func (s *Store) QueueReview(ctx context.Context, rec *models.DrawRecord) error {
	if rec.Status != models.StatusNeedsReview {
		return fmt.Errorf("queue accepts needs_review records only, got %q", rec.Status)
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// SaveScreenshot records a processed (or failed) screenshot.
func (s *Store) SaveScreenshot(ctx context.Context, shot *models.Screenshot) error {
	return s.db.WithContext(ctx).Create(shot).Error
}

// Pending lists the review queue for one game, oldest first.
func (s *Store) Pending(ctx context.Context, gameID string) ([]models.DrawRecord, error) {
	var out []models.DrawRecord
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND status = ?", gameID, models.StatusNeedsReview).
		Order("id asc").Find(&out).Error
	return out, err
}

// Confirm applies a human correction to a queued record and promotes it
// into the ledger. If the corrected record collides with an existing
// ledger entry the correction is absorbed: the queued record is rejected
// with an audit trail and (rec, false, nil) is returned.
func (s *Store) Confirm(ctx context.Context, id uint, itemID, bannerID string, drawTime time.Time, actor string) (*models.DrawRecord, bool, error) {
	var rec models.DrawRecord
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		if rec.Status != models.StatusNeedsReview {
			return fmt.Errorf("record %d is %q: %w", id, rec.Status, ErrNotPending)
		}
		if itemID != "" {
			rec.ItemID = itemID
		}
		if bannerID != "" {
			rec.BannerID = bannerID
		}
		if !drawTime.IsZero() {
			rec.DrawTime = drawTime
		}
		if !rec.Resolved() || rec.DrawTime.IsZero() {
			return fmt.Errorf("record %d still incomplete after correction", id)
		}

		rec.DedupKey = rec.ComputeDedupKey()
		var cnt int64
		if err := tx.Model(&models.DrawRecord{}).
			Where("game_id = ? AND dedup_key = ? AND status = ? AND id <> ?",
				rec.GameID, rec.DedupKey, models.StatusConfirmed, rec.ID).
			Count(&cnt).Error; err != nil {
			return err
		}
		to := models.StatusConfirmed
		detail := fmt.Sprintf("confirmed as %s / %s", rec.ItemID, rec.BannerID)
		if cnt > 0 {
			to = models.StatusRejected
			detail = "duplicate of existing ledger entry, absorbed"
		} else {
			inserted = true
		}
		rec.Status = to
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditEntry{
			GameID:     rec.GameID,
			RecordID:   rec.ID,
			Actor:      actor,
			FromStatus: models.StatusNeedsReview,
			ToStatus:   to,
			Detail:     detail,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &rec, inserted, nil
}

// Reject permanently excludes a queued record from the ledger. The row
// and its audit entry remain for traceability.
func (s *Store) Reject(ctx context.Context, id uint, actor, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.DrawRecord
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		if rec.Status != models.StatusNeedsReview {
			return fmt.Errorf("record %d is %q: %w", id, rec.Status, ErrNotPending)
		}
		rec.Status = models.StatusRejected
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditEntry{
			GameID:     rec.GameID,
			RecordID:   rec.ID,
			Actor:      actor,
			FromStatus: models.StatusNeedsReview,
			ToStatus:   models.StatusRejected,
			Detail:     reason,
		}).Error
	})
}

// Audit lists recent audit entries for a game.
func (s *Store) Audit(ctx context.Context, gameID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.AuditEntry
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}
