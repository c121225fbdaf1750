package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/xdrproxy/internal/logger"
)

// DefaultReloadDelay coalesces bursts of file events (editors often write,
// rename and chmod in quick succession) into one reload.
const DefaultReloadDelay = 200 * time.Millisecond

// Watcher reloads a Store when its schema files change.
//
// Directories are watched rather than files so that atomic replacement by
// rename is seen.
type Watcher struct {
	store   *Store
	fsw     *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
	delay   time.Duration
	results chan error
}

// NewWatcher creates a watcher for the store's paths.
func NewWatcher(store *Store) (*Watcher, error) {
	if len(store.Paths()) == 0 {
		return nil, fmt.Errorf("store has no schema paths to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		store: store,
		fsw:   fsw,
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
		delay: DefaultReloadDelay,
	}

	for _, p := range store.Paths() {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("schema path: %w", err)
		}

		dir := abs
		if !info.IsDir() {
			dir = filepath.Dir(abs)
			w.files[abs] = true
		} else {
			w.dirs[abs] = true
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// SetDelay changes the debounce delay. Call before Run.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// Results returns a channel receiving the outcome of every reload (nil on
// success). Call before Run. Sends never block; results are dropped when
// the channel is full.
func (w *Watcher) Results() <-chan error {
	if w.results == nil {
		w.results = make(chan error, 8)
	}
	return w.results
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("Schema file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.delay)

		case <-timer.C:
			err := w.store.Reload()
			if err != nil {
				logger.Error("Schema reload failed, keeping previous registry", logger.Err(err))
			}
			w.report(err)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Schema watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.files[event.Name] {
		return true
	}
	return w.dirs[filepath.Dir(event.Name)] && isSchemaFile(filepath.Base(event.Name))
}

func (w *Watcher) report(err error) {
	if w.results == nil {
		return
	}
	select {
	case w.results <- err:
	default:
	}
}

// Close stops watching without waiting for Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
