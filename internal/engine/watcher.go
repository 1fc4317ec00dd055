package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/saveward/saveward/internal/apperr"
)

// Watch starts an fsnotify watcher on every world's source directory and
// enqueues a backup cycle after a quiet period of WatchDebounce following
// the last relevant event. It is an additional trigger only: the tracker
// still decides what actually changed. Runs until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, world := range e.set.Worlds {
		srcDir := filepath.Join(e.set.WorldsDir, world, e.set.SourceSubdir)
		if err := addDirsRecursive(w, srcDir); err != nil {
			e.logger.Warn("watch: add world failed",
				slog.String("world", world),
				slog.String("dir", srcDir),
				slog.String("error", err.Error()))
		}
	}

	e.logger.Info("watch: started", slog.Int("worlds", len(e.set.Worlds)))

	// debounce coalesces event bursts into a single cycle request.
	var debounce *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(e.set.WatchDebounce)
			fire = debounce.C
		} else {
			debounce.Reset(e.set.WatchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			e.logger.Info("watch: stopped")
			return nil

		case <-fire:
			rep, err := e.RunCycle(ctx, TriggerWatch)
			switch {
			case errors.Is(err, apperr.ErrBusy):
				e.logger.Debug("watch: cycle in flight, trigger dropped")
			case err != nil:
				if ctx.Err() == nil {
					e.logger.Warn("watch: cycle failed", slog.String("error", err.Error()))
				}
			default:
				e.logger.Info("watch: cycle completed", slog.String("summary", rep.Summary()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// New directories (e.g. fresh region folders) join the watch list.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						e.logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, e.set.FileSuffix) {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
