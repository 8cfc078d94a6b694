package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch loads path once and then reloads it whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file on save are handled.
// A reload that fails to read, decode or validate is logged and the previous value is kept.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the YAML file to follow
//
// Returns:
//   - error: an error if the initial load fails or the watcher cannot be started
func (s *Source[T]) Watch(ctx context.Context, path string) error {
	if path == "" {
		return ErrNoPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("settings: failed to resolve %q: %w", path, err)
	}
	if err := s.Load(abs); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("settings: failed to watch %q: %w", abs, err)
	}

	s.logger.Info("watching settings file", zap.String("settings", s.name), zap.String("path", abs))

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	go func() {
		defer watcher.Close()
		defer debounceTimer.Stop()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldProcessEvent(event, abs) {
					debounceTimer.Reset(s.debounce)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("settings watcher error", zap.String("settings", s.name), zap.Error(err))

			case <-debounceTimer.C:
				if err := s.Load(abs); err != nil {
					s.logger.Error("failed to reload settings, keeping previous value",
						zap.String("settings", s.name), zap.Error(err))
					continue
				}
				s.logger.Info("settings reloaded",
					zap.String("settings", s.name), zap.Uint64("version", s.Version()))

			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// shouldProcessEvent reports whether an event changes the watched file.
func shouldProcessEvent(event fsnotify.Event, path string) bool {
	if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 && event.Op&fsnotify.Rename == 0 {
		return false
	}
	return filepath.Clean(event.Name) == path
}
