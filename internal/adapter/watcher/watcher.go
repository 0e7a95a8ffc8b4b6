// Package watcher keeps the library in sync with folders on disk using fsnotify.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to settle.
const DefaultDebounce = 2 * time.Second

// ErrAlreadyRunning is returned by Start on a running watcher.
var ErrAlreadyRunning = errors.New("watcher already running")

// Sink receives the files that changed.
type Sink interface {
	AddFiles(ctx context.Context, files []string) error
	RemoveFile(path string) bool
}

// Options configures a Watcher.
type Options struct {
	// Filter selects the files to report, nil reports every file
	Filter func(path string) bool

	// Debounce overrides DefaultDebounce when positive
	Debounce time.Duration
}

// Watcher monitors folders recursively and hands created or removed audio files
// to its sink after a debounce period.
type Watcher struct {
	logger   *slog.Logger
	sink     Sink
	filter   func(path string) bool
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu            sync.Mutex
	running       bool
	created       []string
	removed       []string
	debounceTimer *time.Timer
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a watcher. Nothing is watched until Start is called.
func New(sink Sink, logger *slog.Logger, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	filter := opts.Filter
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &Watcher{
		logger:   logger.With(slog.String("component", "watcher")),
		sink:     sink,
		filter:   filter,
		debounce: debounce,
		watcher:  fw,
	}, nil
}

// Start begins watching the folders and every folder below them.
func (w *Watcher) Start(ctx context.Context, folders ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}

	for _, folder := range folders {
		if err := w.addTree(folder); err != nil {
			return err
		}
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Info("file watcher started", slog.Any("folders", folders))
	return nil
}

// Stop stops watching and drops changes still waiting for the debounce.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.cancel()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()

	w.logger.Info("file watcher stopped")
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch folder", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	})
}

// watchLoop processes file system events
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", slog.Any("error", err))

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new folder", slog.String("path", event.Name), slog.Any("error", err))
			}
			return
		}
		if w.filter(event.Name) {
			w.queue(&w.created, event.Name)
		}

	case event.Has(fsnotify.Write):
		if w.filter(event.Name) {
			w.queue(&w.created, event.Name)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.filter(event.Name) {
			w.queue(&w.removed, event.Name)
		}
	}
}

// queue records a path and restarts the debounce timer.
func (w *Watcher) queue(list *[]string, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if !slices.Contains(*list, path) {
		*list = append(*list, path)
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.flush)
}

// flush hands the settled changes to the sink.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	created, removed := w.created, w.removed
	w.created, w.removed = nil, nil
	w.debounceTimer = nil
	ctx := w.ctx

	// A file created then removed inside one window is only a removal
	created = slices.DeleteFunc(created, func(path string) bool {
		return slices.Contains(removed, path)
	})

	// Hold the wait group so Stop waits for the sink call
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	for _, path := range removed {
		w.sink.RemoveFile(path)
	}

	if len(created) == 0 {
		return
	}

	w.logger.Debug("adding changed files", slog.Int("files", len(created)))
	if err := w.sink.AddFiles(ctx, created); err != nil {
		w.logger.Warn("failed to add changed files", slog.Any("error", err))
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
