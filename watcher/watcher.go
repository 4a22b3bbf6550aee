// Package watcher invalidates a render cache when source media files
// change on disk: once a watched footage file is rewritten, every
// frame that might depend on it is stale and has to be re-rendered.
package watcher

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/fsnotify/fsnotify"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/xsync"
)

// Invalidator is the part of the pipeline the watcher drives.
type Invalidator interface {
	InvalidateCache(ctx context.Context, start, end types.Rational)
}

// Watcher invalidates the whole cache of one pipeline whenever a
// watched file or directory changes.
type Watcher struct {
	Locker      xsync.Mutex
	invalidator Invalidator
	fsWatcher   *fsnotify.Watcher
	cancelFn    context.CancelFunc
}

func New(ctx context.Context, invalidator Invalidator) (_ret *Watcher, _err error) {
	logger.Debugf(ctx, "New")
	defer func() { logger.Debugf(ctx, "/New: %v %v", _ret, _err) }()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize an FS watcher: %w", err)
	}

	w := &Watcher{
		invalidator: invalidator,
		fsWatcher:   fsWatcher,
	}

	ctx, cancelFn := context.WithCancel(ctx)
	w.cancelFn = cancelFn
	observability.Go(ctx, func(ctx context.Context) {
		w.serve(ctx)
	})
	return w, nil
}

func (w *Watcher) String() string {
	return "Watcher"
}

// Add starts watching a file or directory.
func (w *Watcher) Add(ctx context.Context, path string) error {
	logger.Debugf(ctx, "Add: '%s'", path)
	return xsync.DoR1(ctx, &w.Locker, func() error {
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("unable to watch '%s': %w", path, err)
		}
		return nil
	})
}

// Remove stops watching a file or directory.
func (w *Watcher) Remove(ctx context.Context, path string) error {
	logger.Debugf(ctx, "Remove: '%s'", path)
	return xsync.DoR1(ctx, &w.Locker, func() error {
		if err := w.fsWatcher.Remove(path); err != nil {
			return fmt.Errorf("unable to unwatch '%s': %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	w.cancelFn()
	return w.fsWatcher.Close()
}

func (w *Watcher) serve(ctx context.Context) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf(ctx, "got panic in the watcher loop: %v:\n%s\n", r, debug.Stack())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debugf(ctx, "'%s' changed (%s), invalidating the cache", event.Name, event.Op)

			// We cannot tell which frames reference the file, so
			// everything is considered stale.
			w.invalidator.InvalidateCache(ctx, types.NewRational(0, 1), types.RationalMax)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Errorf(ctx, "got an FS watcher error: %v", err)
		}
	}
}
