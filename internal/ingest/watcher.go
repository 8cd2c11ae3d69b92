package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig tunes the inbox watcher.
type WatchConfig struct {
	Roots       []string      // directories to watch, recursive
	InitialScan bool          // emit files already present at startup
	Debounce    time.Duration // settle window for create/write bursts
}

// StartWatcher watches the roots and emits the path of every supported
// file once its event burst settles. Editors and downloaders write files
// in several chunks; the debounce makes sure a path is emitted once, after
// the last write. The channels close when ctx is cancelled.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	emit := func(path string) {
		select {
		case evCh <- path:
		default:
			logger.Warn("watch.queue.full", "path", path)
		}
	}

	// addTree registers every directory under root and, on the initial
	// scan, emits files that were already sitting in the inbox.
	addTree := func(root string, emitExisting bool) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if emitExisting && allowedExt(filepath.Ext(path)) {
				emit(path)
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addTree(root, cfg.InitialScan); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		// The pending map is touched only inside this loop; the timer
		// fires through the select rather than a callback goroutine.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() {
			for p := range pending {
				emit(p)
				delete(pending, p)
			}
			timerC = nil
		}

		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := addTree(e.Name, false); err != nil {
							logger.Warn("watch.add_dir.failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !allowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					if cfg.Debounce <= 0 {
						flush()
						continue
					}
					if timer == nil {
						timer = time.NewTimer(cfg.Debounce)
					} else {
						if !timer.Stop() {
							select {
							case <-timer.C:
							default:
							}
						}
						timer.Reset(cfg.Debounce)
					}
					timerC = timer.C
				}

			case <-timerC:
				flush()

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.failed", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	logger.Info("watch.started", "roots", cfg.Roots, "debounce", cfg.Debounce.String())
	return evCh, errCh, nil
}
