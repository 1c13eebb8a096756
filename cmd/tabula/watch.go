package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch calls fn whenever the file at path is written or replaced, until
// ctx is done. Failures of fn are logged.
func watch(ctx context.Context, path string, logger *slog.Logger, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	// Editors save by renaming a temporary file over the original, which
	// drops a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.InfoContext(ctx, "tabula: watching", "path", path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !affects(ev, path) {
				continue
			}
			if err := fn(); err != nil {
				logger.ErrorContext(ctx, "tabula: generate", "error", err)
				continue
			}
			logger.InfoContext(ctx, "tabula: generated", "path", path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "tabula: watch", "error", err)
		}
	}
}

func affects(ev fsnotify.Event, path string) bool {
	return filepath.Clean(ev.Name) == filepath.Clean(path) &&
		ev.Op&(fsnotify.Write|fsnotify.Create) != 0
}
