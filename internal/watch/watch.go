// Package watch reruns a callback when any of a fixed set of files changes.
//
// Parent directories are watched rather than the files themselves so that
// atomic rename-into-place writes keep being observed. Bursts of events are
// coalesced: the callback runs once the files have been quiet for the
// debounce interval.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/codemask/internal/logging"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 200 * time.Millisecond

// Handler is called with the sorted paths that changed since the last call.
// An error is logged and watching continues.
type Handler func(ctx context.Context, changed []string) error

// Watcher watches a set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]string // absolute path -> path as given
	debounce time.Duration
}

// New starts watching files. A non-positive debounce means DefaultDebounce.
func New(files []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, files: make(map[string]string, len(files)), debounce: debounce}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = f

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run delivers changes to fn until ctx is cancelled or the watcher is
// closed. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path, ok := w.files[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			logging.DebugContext(ctx, "file changed", "path", path, "op", ev.Op.String())
			pending[path] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnContext(ctx, "watch error", "error", err.Error())

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)

			if err := fn(ctx, changed); err != nil {
				logging.ErrorContext(ctx, "watch handler failed", "error", err.Error(), "files", len(changed))
			}
		}
	}
}

// Close stops watching. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
