package svcrun

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// FollowFile streams appended data from path to w until the context is
// cancelled. It is used by legacy-mode log tailing, where there is no
// supervisord to delegate the follow to. Writes are driven by fsnotify
// events with a short debounce so bursts coalesce into single reads.
func FollowFile(ctx context.Context, path string, w io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}

	// Emit existing content first, then follow from the end.
	if _, err := io.Copy(w, file); err != nil {
		_ = file.Close()
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return err
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		_ = file.Close()
	})

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		sctx.Stop(100 * time.Millisecond)
		_ = sctx.Wait()
		return err
	}

	sctx.Go(func(sctx *stopper.Context) error {
		var debounce *time.Timer
		sctx.Defer(func() {
			if debounce != nil {
				debounce.Stop()
			}
		})

		drain := func() {
			_, _ = io.Copy(w, file)
		}

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name != path || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(10*time.Millisecond, drain)
			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
		return nil
	})

	<-ctx.Done()
	sctx.Stop(100 * time.Millisecond)
	return sctx.Wait()
}
