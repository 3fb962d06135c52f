package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	Files       []string      // individual files to watch (e.g. the vendor master)
	InitialScan bool          // if true, walk roots and emit existing PDFs
	Debounce    time.Duration // coalesce rapid create/write bursts
	Logger      *slog.Logger
}

// Event is a debounced change notification.
type Event struct {
	Path string
	// Watched is true when Path is one of WatchConfig.Files.
	Watched bool
}

// StartWatcher emits PDFs created or written under the roots and changes
// to the individually watched files. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan Event, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 && len(cfg.Files) == 0 {
		logger.Error("watcher start failed: nothing to watch")
		return nil, nil, errors.New("no roots or files provided")
	}

	evCh := make(chan Event, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowedPath(path) && !IsHidden(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	// Editors and Excel replace files on save, so the parent dir is watched
	// and events are filtered by name.
	watched := make(map[string]struct{}, len(cfg.Files))
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		watched[abs] = struct{}{}
		if err := w.Add(filepath.Dir(abs)); err != nil {
			logger.Error("failed to watch file directory", "file", f, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			timer   *time.Timer
			pending = map[string]Event{}
			done    bool
		)
		defer func() {
			mu.Lock()
			done = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
			close(evCh)
			close(errCh)
		}()

		emit := func(ev Event) {
			select {
			case evCh <- ev:
			default:
				logger.Warn("watch event dropped: channel full", "path", ev.Path)
			}
		}
		sendPending := func() {
			mu.Lock()
			defer mu.Unlock()
			if done {
				return
			}
			for p, ev := range pending {
				emit(ev)
				delete(pending, p)
			}
		}

		for _, p := range initial {
			emit(Event{Path: p})
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name)
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}

				var ev Event
				abs, err := filepath.Abs(e.Name)
				if err != nil {
					abs = e.Name
				}
				if _, ok := watched[abs]; ok {
					ev = Event{Path: abs, Watched: true}
				} else if allowedPath(e.Name) && !IsHidden(e.Name) {
					ev = Event{Path: e.Name}
				} else {
					continue
				}

				mu.Lock()
				pending[ev.Path] = ev
				if cfg.Debounce > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, sendPending)
					mu.Unlock()
				} else {
					mu.Unlock()
					sendPending()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// tryAddDir starts watching path if it is a new directory.
func tryAddDir(w *fsnotify.Watcher, path string) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		_ = w.Add(path)
	}
}
