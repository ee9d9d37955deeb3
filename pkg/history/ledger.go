// Package history owns the append-only draw ledger, the review queue
// and the audit log. No other component touches stored records.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Coxwtwo/gacha-ocr/models"
)

// Ledger is the append-only store of confirmed draw records. Append is
// idempotent over the dedup key; a duplicate reports (false, nil) and
// changes nothing.
type Ledger interface {
	Append(ctx context.Context, rec *models.DrawRecord) (bool, error)
	Slice(ctx context.Context, gameID string, from, to time.Time) ([]models.DrawRecord, error)
}

func validateForLedger(rec *models.DrawRecord) error {
	if rec.Status != models.StatusConfirmed {
		return fmt.Errorf("ledger accepts confirmed records only, got %q", rec.Status)
	}
	if !rec.Resolved() {
		return fmt.Errorf("ledger record must carry item and banner ids")
	}
	if rec.DrawTime.IsZero() {
		return fmt.Errorf("ledger record must carry a draw time")
	}
	return nil
}

// MemoryLedger keeps the ledger in process memory. Used by tests and by
// analyzer-only runs that never touch the database.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
	recs []models.DrawRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[string]struct{})}
}

func (m *MemoryLedger) Append(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	if err := validateForLedger(rec); err != nil {
		return false, err
	}
	key := rec.ComputeDedupKey()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.keys[key]; dup {
		return false, nil
	}
	rec.DedupKey = key
	m.keys[key] = struct{}{}
	m.recs = append(m.recs, *rec)
	return true, nil
}

func (m *MemoryLedger) Slice(ctx context.Context, gameID string, from, to time.Time) ([]models.DrawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DrawRecord
	for _, r := range m.recs {
		if r.GameID != gameID {
			continue
		}
		if !from.IsZero() && r.DrawTime.Before(from) {
			continue
		}
		if !to.IsZero() && r.DrawTime.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawTime.Before(out[j].DrawTime) })
	return out, nil
}

// Len reports the current ledger length across all games.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}
