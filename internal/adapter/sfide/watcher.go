package sfide

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies the pipeline when product files land in the source tree,
// so new acquisitions show up on the map without waiting for the next
// periodic scan. Notifications are debounced: the SFIDE chain writes several
// files per acquisition in quick succession.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	logger   *slog.Logger
	notify   chan struct{}
	done     chan struct{}
}

// NewWatcher creates a recursive watcher over the source tree. Existing
// subdirectories are watched immediately; directories created later are
// picked up from their create events.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		root:     root,
		debounce: debounce,
		logger:   logger,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if addErr := fsw.Add(path); addErr != nil {
			logger.Warn("could not watch directory", "path", path, "error", addErr)
		}
		return nil
	})
	if err != nil {
		fsw.Close() //nolint:errcheck // already failing
		return nil, err
	}

	return w, nil
}

// Start runs the event loop until the context is cancelled.
// This method is non-blocking.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Notify returns the channel that receives a signal after a debounced batch
// of product file changes.
func (w *Watcher) Notify() <-chan struct{} {
	return w.notify
}

// Close stops the underlying fsnotify watcher and waits for the loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	// The timer is armed on the first relevant event and reset on each
	// subsequent one; it fires only after the tree has gone quiet.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				w.maybeWatchDir(event.Name)
			}
			if !isProductEvent(event) {
				continue
			}
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			armed = true

		case <-timer.C:
			armed = false
			select {
			case w.notify <- struct{}{}:
			default: // a notification is already pending
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// maybeWatchDir adds newly created directories to the watch so nested
// product drops (per-day subdirectories) are covered.
func (w *Watcher) maybeWatchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("could not watch new directory", "path", path, "error", err)
	}
}

// isProductEvent reports whether the event concerns a product file write.
func isProductEvent(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".geojson") {
		return false
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename)
}
