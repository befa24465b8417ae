// Package watcher keeps an index current by re-running the incremental
// pipeline when files under the watched root change. Events are debounced
// into a single run per burst; change detection itself is left to the
// hash tracker, so the watcher only needs to notice that something moved.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kodexlab/kodex/internal/walker"
)

const defaultDebounce = 400 * time.Millisecond

// Reindexer is the callback invoked after a debounced burst of changes.
// The watcher passes the watched root; the callee runs an incremental
// indexing pass over it.
type Reindexer func(ctx context.Context, root string)

// Watcher watches one root recursively and triggers debounced reindex runs.
type Watcher struct {
	root     string
	reindex  Reindexer
	debounce time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher over root. A non-positive debounce uses the default.
func New(root string, reindex Reindexer, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		root:     root,
		reindex:  reindex,
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start registers the root tree and begins processing events. It returns
// once the watcher is running; event handling continues until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.started = true
	w.log.Info("watching for changes", zap.String("root", w.root), zap.Duration("debounce", w.debounce))

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.log.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if walker.ExcludedDir(name) {
		return
	}

	// New directories must be registered before their contents produce
	// events; everything else just schedules a run.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.fsw != nil {
				if err := addTree(w.fsw, ev.Name); err != nil {
					w.log.Warn("failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
				}
			}
			w.mu.Unlock()
		}
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.log.Debug("change detected", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.schedule(ctx)
}

// schedule resets the debounce timer; the reindex fires once the burst of
// events has been quiet for the full window.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}
		w.log.Info("changes settled, reindexing", zap.String("root", w.root))
		w.reindex(ctx, w.root)
	})
}

// Stop stops event processing and cancels any pending reindex.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
		w.fsw = nil
	}
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// addTree registers dir and every non-excluded subdirectory.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && walker.ExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
