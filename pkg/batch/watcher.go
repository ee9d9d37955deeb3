package batch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Watcher feeds an inbox directory into a Runner: fsnotify create events
// (debounced until the file stops growing) plus an optional cron-driven
// full rescan that picks up anything the watcher missed. Reprocessing an
// already-seen file is safe because the ledger is idempotent.
type Watcher struct {
	Runner     *Runner
	Dir        string
	RescanSpec string // cron spec, empty disables rescans

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewWatcher(r *Runner, dir, rescanSpec string) *Watcher {
	return &Watcher{
		Runner:     r,
		Dir:        dir,
		RescanSpec: rescanSpec,
		seen:       make(map[string]struct{}),
	}
}

// Watch blocks until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return err
	}
	log.Info().Str("dir", w.Dir).Msg("watching inbox (debounced)")

	fileCh := make(chan string, 256)

	var c *cron.Cron
	if w.RescanSpec != "" {
		c = cron.New()
		if _, err := c.AddFunc(w.RescanSpec, func() { w.enqueueAll(fileCh) }); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	// initial scan of whatever is already in the inbox
	w.enqueueAll(fileCh)

	go func() {
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create && IsSupportedExt(ev.Name) {
					pending[ev.Name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for path, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						select {
						case fileCh <- path:
						default:
							log.Warn().Str("path", path).Msg("inbox backlog full, dropping event (rescan will recover)")
						}
						delete(pending, path)
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch error")
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path := <-fileCh:
			if w.markSeen(path) {
				continue
			}
			if _, err := w.Runner.Run(ctx, []string{path}); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) enqueueAll(fileCh chan<- string) {
	for _, path := range ListImages(w.Dir) {
		select {
		case fileCh <- path:
		default:
			log.Warn().Str("path", filepath.Base(path)).Msg("inbox backlog full during rescan")
			return
		}
	}
}

// markSeen reports whether path was already handled this session.
func (w *Watcher) markSeen(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[path]; ok {
		return true
	}
	w.seen[path] = struct{}{}
	return false
}
