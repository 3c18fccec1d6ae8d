// ABOUTME: Watches one file with fsnotify and invokes a callback after it settles.
// ABOUTME: The parent directory is watched so editors that save by rename are still seen.
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// watchFile calls fn once a burst of changes to path has been quiet for
// debounce. It blocks until ctx is cancelled.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *zap.Logger, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	logger.Info("watching for changes", zap.String("component", "watch"), zap.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Debug("file changed",
				zap.String("component", "watch"),
				zap.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case <-timer.C:
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.String("component", "watch"), zap.Error(err))
		}
	}
}
