package pipeline

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the tree must stay quiet before a rebuild.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher rebuilds an index whenever a pipeline document under its root
// changes and hands the new index to a callback.
type Watcher struct {
	root     string
	dialect  Dialect
	debounce time.Duration
	logger   *slog.Logger
	onChange func(*Index)

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	lastAt  time.Time
	pending bool
}

// NewWatcher creates a watcher for the resource at root.
func NewWatcher(root string, d Dialect, onChange func(*Index), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     NormalizePath(root),
		dialect:  d,
		debounce: 300 * time.Millisecond,
		logger:   slog.New(slog.DiscardHandler),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start watches every directory of the pipeline tree, plus the fallback
// roots the dialect layers under it.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, "create fsnotify watcher")
	}
	w.fsWatcher = fsw

	root := w.root
	for depth := 0; depth <= maxFallbackDepth; depth++ {
		if dir, ok := w.dialect.PipelineRoot(root); ok {
			if err := w.addTree(dir); err != nil {
				_ = fsw.Close()
				return err
			}
		}
		next, ok := w.dialect.FallbackRoot(root)
		if !ok {
			break
		}
		root = NormalizePath(next)
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop terminates the watcher. It is safe to call Stop multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return zerr.With(zerr.Wrap(err, "watch directory"), "dir", path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("pipeline watcher: watch new directory", "dir", event.Name, "error", err)
				}
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.mu.Lock()
				w.pending = true
				w.lastAt = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("pipeline watcher error", "error", err)

		case <-ticker.C:
			w.processPending()
		}
	}
}

func (w *Watcher) processPending() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.lastAt) >= w.debounce
	if ready {
		w.pending = false
	}
	w.mu.Unlock()
	if !ready {
		return
	}

	idx, err := Build(w.root, w.dialect, WithLogger(w.logger))
	if err != nil {
		w.logger.Error("pipeline watcher: rebuild index", "root", w.root, "error", err)
		return
	}
	w.logger.Info("pipeline index rebuilt", "root", w.root, "tasks", idx.Len())
	w.onChange(idx)
}
