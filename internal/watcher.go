package internal

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kittclouds/galaxy/pkg/knowledge"
)

// RebuildCallback is called after a watcher-driven rebuild.
type RebuildCallback func(files []string, report knowledge.Report)

// Watch imports workspace files (*.json) dropped into or rewritten under
// dir, then rebuilds the graph once changes have settled for the
// configured debounce. Files already present are imported once at start.
// It blocks until ctx is cancelled.
func (a *App) Watch(ctx context.Context, dir string, cb RebuildCallback) error {
	logger := a.logger
	debounce := a.config.Watch.Debounce

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	existing, err := addDirsRecursive(w, dir)
	if err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", dir), slog.Int("existing", len(existing)))
	if len(existing) > 0 {
		a.syncFiles(ctx, existing, cb)
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			files := make([]string, 0, len(pending))
			for p := range pending {
				files = append(files, p)
			}
			sort.Strings(files)
			clear(pending)

			a.syncFiles(ctx, files, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					files, addErr := addDirsRecursive(w, ev.Name)
					if addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					for _, f := range files {
						schedule(f)
					}
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// syncFiles imports changed workspace files and rebuilds the graph once.
func (a *App) syncFiles(ctx context.Context, files []string, cb RebuildCallback) {
	imported := files[:0]
	for _, f := range files {
		if _, err := a.ImportFile(ctx, f); err != nil {
			a.logger.Warn("watcher: import failed",
				slog.String("path", f),
				slog.String("error", err.Error()))
			continue
		}
		imported = append(imported, f)
	}
	if len(imported) == 0 {
		return
	}

	report, err := a.Rebuild()
	if err != nil {
		a.logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
		return
	}
	if cb != nil {
		cb(imported, report)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher and
// returns the workspace files found on the way, in lexical order.
func addDirsRecursive(w *fsnotify.Watcher, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
