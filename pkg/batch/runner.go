package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Coxwtwo/gacha-ocr/models"
)

// Sink receives pipeline output. Appends arrive from a single collector
// goroutine, so implementations need no extra serialization for the
// dedup invariant.
type Sink interface {
	Append(ctx context.Context, rec *models.DrawRecord) (bool, error)
	QueueReview(ctx context.Context, rec *models.DrawRecord) error
	SaveScreenshot(ctx context.Context, shot *models.Screenshot) error
}

// Summary is the outcome of one batch run.
type Summary struct {
	BatchID     string `json:"batch_id"`
	Processed   int    `json:"processed"`
	Confirmed   int    `json:"confirmed"`
	NeedsReview int    `json:"needs_review"`
	Absorbed    int    `json:"absorbed"`
	Failed      int    `json:"failed"`
	Cancelled   bool   `json:"cancelled"`
}

// Runner fans images out to a worker pool; each image runs the full
// pipeline independently. Results funnel through one collector so store
// appends stay serialized.
type Runner struct {
	Pipeline *Pipeline
	Sink     Sink
	Workers  int
}

func NewRunner(p *Pipeline, sink Sink, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{Pipeline: p, Sink: sink, Workers: workers}
}

type result struct {
	path string
	rec  *models.DrawRecord
	err  error
}

// Run processes the given images. A bad image never aborts the batch;
// cancellation stops between images and already-appended records remain.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	sum := Summary{BatchID: uuid.NewString()}
	if len(paths) == 0 {
		return sum, nil
	}
	log.Info().Str("batch", sum.BatchID).Int("images", len(paths)).
		Str("game", r.Pipeline.cfg.GameID).Int("workers", r.Workers).Msg("batch started")

	pathCh := make(chan string)
	resCh := make(chan result)
	var wg sync.WaitGroup
	for i := 0; i < r.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathCh {
				rec, err := r.Pipeline.ProcessImage(ctx, path)
				select {
				case resCh <- result{path: path, rec: rec, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		defer close(pathCh)
		for _, p := range paths {
			select {
			case pathCh <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resCh)
	}()

	// single collector: store writes stay serialized here
	for res := range resCh {
		r.collect(ctx, &sum, res)
	}
	if ctx.Err() != nil {
		sum.Cancelled = true
	}
	log.Info().Str("batch", sum.BatchID).Int("processed", sum.Processed).
		Int("confirmed", sum.Confirmed).Int("review", sum.NeedsReview).
		Int("absorbed", sum.Absorbed).Int("failed", sum.Failed).
		Bool("cancelled", sum.Cancelled).Msg("batch finished")
	return sum, ctx.Err()
}

func (r *Runner) collect(ctx context.Context, sum *Summary, res result) {
	gameID := r.Pipeline.cfg.GameID
	shot := &models.Screenshot{
		GameID:    gameID,
		FileName:  filepath.Base(res.path),
		StorePath: res.path,
		BatchID:   sum.BatchID,
	}
	switch {
	case res.err != nil && errors.Is(res.err, context.Canceled):
		// partial image discarded; no trace beyond the log
		log.Debug().Str("path", res.path).Msg("image discarded after cancellation")
		return
	case res.err != nil:
		sum.Processed++
		sum.Failed++
		shot.Failed = true
		shot.FailedReason = res.err.Error()
		log.Warn().Err(res.err).Str("path", res.path).Msg("image failed")
	case res.rec.Status == models.StatusConfirmed:
		sum.Processed++
		inserted, err := r.Sink.Append(ctx, res.rec)
		if err != nil {
			sum.Failed++
			shot.Failed = true
			shot.FailedReason = err.Error()
			log.Error().Err(err).Str("path", res.path).Msg("ledger append failed")
			break
		}
		if inserted {
			sum.Confirmed++
		} else {
			sum.Absorbed++
		}
		if res.rec.ID != 0 {
			shot.RecordID = &res.rec.ID
		}
	default:
		sum.Processed++
		if err := r.Sink.QueueReview(ctx, res.rec); err != nil {
			sum.Failed++
			shot.Failed = true
			shot.FailedReason = err.Error()
			log.Error().Err(err).Str("path", res.path).Msg("review enqueue failed")
			break
		}
		sum.NeedsReview++
		if res.rec.ID != 0 {
			shot.RecordID = &res.rec.ID
		}
	}
	if err := r.Sink.SaveScreenshot(ctx, shot); err != nil {
		log.Warn().Err(err).Str("path", res.path).Msg("screenshot row not saved")
	}
}

// ListImages returns the sorted image file names in dir.
func ListImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExt(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

func IsSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}
