package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/internal/discovery"
	"go.uber.org/zap"
)

const defaultSettle = 2 * time.Second

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher reports files in the data directory once writes to them have
// been quiet for the settle interval.
type Watcher struct {
	finder *discovery.Finder
	settle time.Duration
	log    *zap.Logger
}

func New(cfg config.Config, finder *discovery.Finder, log *zap.Logger) *Watcher {
	settle := cfg.Pipeline.WatchSettle
	if settle <= 0 {
		settle = defaultSettle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{finder: finder, settle: settle, log: log.Named("watch")}
}

// Run blocks until ctx is done, passing each settled file to handle in
// arrival order. Handler errors are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.finder.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.finder.Dir(), err)
	}
	w.log.Info("watching data directory", zap.String("dir", w.finder.Dir()), zap.Duration("settle", w.settle))
	return w.loop(ctx, fsw.Events, fsw.Errors, handle)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, handle Handler) error {
	pending := map[string]time.Time{}
	timer := time.NewTimer(w.settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.finder.Matches(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
			timer.Reset(w.settle)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			ready := collect(pending, time.Now().Add(-w.settle))
			for _, path := range ready {
				if ctx.Err() != nil {
					return nil
				}
				w.dispatch(ctx, path, handle)
			}
			if next, ok := earliest(pending); ok {
				timer.Reset(time.Until(next.Add(w.settle)))
			}
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string, handle Handler) {
	log := w.log.With(zap.String("file_id", filepath.Base(path)))
	log.Info("file settled")
	if err := handle(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("file handler failed", zap.Error(err))
	}
}

// collect removes and returns the paths last touched at or before cutoff,
// ordered by last event then name.
func collect(pending map[string]time.Time, cutoff time.Time) []string {
	var ready []string
	for path, at := range pending {
		if !at.After(cutoff) {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := pending[ready[i]], pending[ready[j]]
		if a.Equal(b) {
			return ready[i] < ready[j]
		}
		return a.Before(b)
	})
	for _, path := range ready {
		delete(pending, path)
	}
	return ready
}

func earliest(pending map[string]time.Time) (time.Time, bool) {
	var (
		first time.Time
		found bool
	)
	for _, at := range pending {
		if !found || at.Before(first) {
			first, found = at, true
		}
	}
	return first, found
}
