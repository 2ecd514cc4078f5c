// Package watch re-runs a handler when moddle documents change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logflow/bpmnctx/pkg/logger"
)

// Handler is called once per settled change.
type Handler func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before the handler runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler receives handler and watcher errors.
func WithErrorHandler(fn func(path string, err error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// Watcher monitors files for changes and triggers updates.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handle   Handler
	onError  func(path string, err error)
	log      logger.Logger
	debounce time.Duration
	ext      string

	mu    sync.Mutex
	files map[string]*fileState
	dirs  map[string]bool

	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

type fileState struct {
	lastModified time.Time
	size         int64
	processing   bool
}

// NewWatcher creates a watcher that calls handle for changed documents.
func NewWatcher(handle Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		handle:   handle,
		log:      logger.Discard(),
		debounce: 500 * time.Millisecond,
		ext:      ".json",
		files:    make(map[string]*fileState),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds a document, or a directory whose .json documents are all watched,
// including ones created later.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	dir := filepath.Dir(absPath)
	w.mu.Lock()
	if stat.IsDir() {
		dir = absPath
		w.dirs[absPath] = true
	} else {
		w.files[absPath] = &fileState{
			lastModified: stat.ModTime(),
			size:         stat.Size(),
		}
	}
	w.mu.Unlock()

	// Watch the directory containing the file (fsnotify works better this way)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	w.log.Debug("watching", "path", absPath)
	return nil
}

// Run starts the watch loop. Blocks until ctx is cancelled, then waits for
// running handlers.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			state := w.track(absPath)
			if state == nil {
				continue
			}

			// Debounce rapid changes
			w.mu.Lock()
			if timer, exists := w.timers[absPath]; exists {
				timer.Stop()
			}
			w.timers[absPath] = time.AfterFunc(w.debounce, func() {
				w.mu.Lock()
				if w.stopped {
					w.mu.Unlock()
					return
				}
				w.wg.Add(1)
				w.mu.Unlock()
				defer w.wg.Done()
				w.handleChange(ctx, absPath, state)
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.reportError("", err)
		}
	}
}

// track returns the state for a watched path, registering new documents that
// appear in a watched directory.
func (w *Watcher) track(path string) *fileState {
	w.mu.Lock()
	defer w.mu.Unlock()

	if state, ok := w.files[path]; ok {
		return state
	}
	if !w.dirs[filepath.Dir(path)] || !strings.EqualFold(filepath.Ext(path), w.ext) {
		return nil
	}
	state := &fileState{}
	w.files[path] = state
	return state
}

func (w *Watcher) handleChange(ctx context.Context, path string, state *fileState) {
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		w.reportError(path, err)
		return
	}

	w.mu.Lock()
	if stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size {
		w.mu.Unlock()
		return
	}
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	w.log.Debug("document changed", "path", path)
	if err := w.handle(ctx, path); err != nil {
		w.reportError(path, err)
	}
}

func (w *Watcher) reportError(path string, err error) {
	w.log.Warn("watch error", "path", path, "err", err)
	if w.onError != nil {
		w.onError(path, err)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.mu.Unlock()
	w.wg.Wait()
	w.watcher.Close()
}

// Close stops the watcher without running it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
