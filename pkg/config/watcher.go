package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads the config file whenever it is written and hands the
// new value to a callback. Editors that replace the file are handled by
// watching the parent directory.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func(*HostConfig)
}

// NewWatcher returns a watcher for path. onChange runs on the watcher goroutine.
func NewWatcher(path string, logger *slog.Logger, onChange func(*HostConfig)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: filepath.Clean(path), logger: logger, onChange: onChange}
}

// Start begins watching until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				w.reload(ev)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) reload(ev fsnotify.Event) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config file changed", "path", ev.Name, "op", ev.Op.String())
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
