package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file whenever it changes on disk and
// hands the validated result to a callback. A file that becomes invalid is
// reported through the error callback; the previous configuration stays in
// effect at the call sites.
type Watcher struct {
	path     string
	onChange func(*Config)
	onError  func(error)
	log      *slog.Logger
}

// NewWatcher builds a watcher for the configuration file at path. onChange
// receives each successfully reloaded configuration; onError receives
// reload failures and may be nil.
func NewWatcher(path string, onChange func(*Config), onError func(error)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		onError:  onError,
		log:      slog.Default().With("component", "config-watcher"),
	}
}

// Run watches until ctx is canceled. The parent directory is watched, not
// the file itself, so editors that replace the file atomically (rename over
// it) are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.log.Info("watching configuration", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn("configuration reload failed", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.log.Info("configuration reloaded", "path", w.path, "rules", len(cfg.Rules))
	w.onChange(cfg)
}
