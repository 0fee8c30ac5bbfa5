package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/codexref/pkg/types"
)

// DefaultDebounce is the quiet period a file must see before it is resynced
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions configures a Watcher
type WatchOptions struct {
	IndexOptions
	Debounce time.Duration
	// OnSync, when set, is called after every resync attempt
	OnSync func(path string, result *types.SyncResult, err error)
}

// Watcher keeps the store in sync with a directory tree using fsnotify.
// Changes are debounced per file and applied with ResyncFile.
type Watcher struct {
	engine   *Engine
	watcher  *fsnotify.Watcher
	root     string
	opts     WatchOptions
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time // File path -> last change time
}

// NewWatcher creates a watcher for the tree under root
func (e *Engine) NewWatcher(root string, opts WatchOptions) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		engine:   e,
		watcher:  fw,
		root:     absRoot,
		opts:     opts,
		debounce: debounce,
		log:      e.log.With("root", absRoot),
		pending:  make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is canceled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	// Add root directory and all subdirectories
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	ticker := time.NewTicker(max(w.debounce/3, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Close stops watching and releases resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addRecursive adds a directory and all its subdirectories to the watch list
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable entries
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && skipDir(d.Name(), w.opts.IndexOptions) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Debug("cannot watch directory", slog.String("dir", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(path), w.opts.IndexOptions) {
				if err := w.addRecursive(path); err != nil {
					w.log.Warn("cannot watch new directory", slog.String("dir", path), slog.String("error", err.Error()))
				}
				w.queueTree(path)
			}
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A removed directory takes its stored files with it
		w.queueStoredUnder(path)
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.engine.included(path, w.opts.IndexOptions) {
			w.queue(path)
		}
	}
}

func (w *Watcher) queue(path string) {
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// queueTree queues every supported file of a newly created directory
func (w *Watcher) queueTree(dir string) {
	files, err := w.engine.discoverFiles(dir, w.opts.IndexOptions)
	if err != nil {
		return
	}
	for _, f := range files {
		w.queue(f)
	}
}

// queueStoredUnder queues every stored file below dir
func (w *Watcher) queueStoredUnder(dir string) {
	files, err := w.engine.store.Files()
	if err != nil {
		return
	}
	prefix := dir + string(filepath.Separator)
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			w.queue(f)
		}
	}
}

// flush resyncs every file that has been quiet for the debounce period
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var toProcess []string
	for path, changeTime := range w.pending {
		if now.Sub(changeTime) >= w.debounce {
			toProcess = append(toProcess, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toProcess {
		result, err := w.engine.ResyncFile(ctx, path)
		if errors.Is(err, types.ErrSyncInProgress) {
			// Another reconciliation holds the lock; retry later
			w.queue(path)
			continue
		}
		if err != nil {
			w.log.Warn("resync failed", slog.String("file", path), slog.String("error", err.Error()))
		} else {
			w.log.Debug("file resynced",
				slog.String("file", path),
				slog.Int("added", result.Added),
				slog.Int("updated", result.Updated),
				slog.Int("removed", result.Removed))
		}
		if w.opts.OnSync != nil {
			w.opts.OnSync(path, result, err)
		}
	}
}
