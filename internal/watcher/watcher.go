// Package watcher watches the model directory for the arrival of model files.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// ModelWatcher watches a single directory with fsnotify and fires a one-shot
// callback once every expected file exists. It covers deployments where a
// separate job downloads the model after the service has already started:
// the service boots unavailable and begins loading as soon as the files land.
type ModelWatcher struct {
	dir        string
	files      []string
	onComplete func()
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	started    bool
	fired      bool
	done       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
}

// Option configures a ModelWatcher.
type Option func(*ModelWatcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *ModelWatcher) { w.logger = l }
}

// NewModelWatcher creates a watcher for dir. files are the base names that
// must all exist before onComplete fires; onComplete fires at most once.
func NewModelWatcher(dir string, files []string, onComplete func(), opts ...Option) *ModelWatcher {
	w := &ModelWatcher{
		dir:        dir,
		files:      files,
		onComplete: onComplete,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts watching. The directory is created when missing. If all files
// are already present, the callback fires immediately (debounced) and the
// watcher still runs until stopped. Runs until ctx is cancelled or Stop.
func (w *ModelWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("model watcher starting", zap.String("dir", w.dir), zap.Strings("files", w.files))
	}
	w.mu.Unlock()

	go w.run(ctx)
	w.checkComplete()
	return nil
}

func (w *ModelWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("model watcher error", zap.Error(err))
			}
		}
	}
}

func (w *ModelWatcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if !w.expectedFile(ev.Name) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("model watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	w.checkComplete()
}

func (w *ModelWatcher) expectedFile(path string) bool {
	base := filepath.Base(path)
	for _, f := range w.files {
		if f == base {
			return true
		}
	}
	return false
}

// checkComplete debounces, then fires onComplete once when all files exist.
// Debouncing lets a writer finish before loading begins.
func (w *ModelWatcher) checkComplete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired {
		return
	}
	for _, f := range w.files {
		if _, err := os.Stat(filepath.Join(w.dir, f)); err != nil {
			return
		}
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.fired {
			w.mu.Unlock()
			return
		}
		// Re-check after the debounce window; a file may have been removed.
		for _, f := range w.files {
			if _, err := os.Stat(filepath.Join(w.dir, f)); err != nil {
				w.mu.Unlock()
				return
			}
		}
		w.fired = true
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("model files complete", zap.String("dir", w.dir))
		}
		if w.onComplete != nil {
			w.onComplete()
		}
	})
}

// Stop stops the watcher and releases resources.
func (w *ModelWatcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
