package svcrun

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// WaitForFile blocks until path exists or the timeout expires. It watches
// the parent directory with fsnotify and falls back to coarse polling when
// a watcher cannot be established (the directory may not exist yet, or the
// platform may lack inotify capacity).
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollForFile(ctx, path)
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() { _ = watcher.Close() })
	defer func() {
		sctx.Stop(100 * time.Millisecond)
		_ = sctx.Wait()
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return pollForFile(ctx, path)
	}

	// Re-check after the watch is registered: the file may have appeared
	// between the stat above and the Add.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ErrWaitTimeout
		case event, ok := <-watcher.Events:
			if !ok {
				return pollForFile(ctx, path)
			}
			if event.Name == path && event.Op.Has(fsnotify.Create|fsnotify.Write) {
				return nil
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return pollForFile(ctx, path)
			}
			// Watch errors degrade to polling rather than failing the wait.
			return pollForFile(ctx, path)
		}
	}
}

// pollForFile is the fallback wait: stat at a fixed interval until the
// context expires.
func pollForFile(ctx context.Context, path string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ErrWaitTimeout
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
