package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-indexes bibliography documents as they change on disk.
type Watcher struct {
	library *Library
	folder  string

	// Debounce window: editors fire several events per save.
	settle time.Duration
}

// NewWatcher creates a watcher over the bibliography folder.
func NewWatcher(library *Library, folder string) *Watcher {
	return &Watcher{
		library: library,
		folder:  folder,
		settle:  500 * time.Millisecond,
	}
}

// Watch blocks, re-indexing documents on create and write events and
// removing them from the index on remove and rename events, until the
// context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.folder); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.folder, err)
	}

	slog.Info("Watching bibliography folder", "path", w.folder)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				if w.library.parsers.CanParse(event.Name) {
					pending[event.Name] = time.Now()
				}

			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(pending, event.Name)
				if err := w.library.store.DeleteByFilter(ctx, w.library.collection, map[string]any{"path": event.Name}); err != nil {
					slog.Warn("Failed to remove document from index", "path", event.Name, "error", err)
				} else {
					slog.Info("Removed document from index", "path", event.Name)
				}
			}

		case now := <-ticker.C:
			for path, stamp := range pending {
				if now.Sub(stamp) < w.settle {
					continue
				}
				delete(pending, path)

				chunks, err := w.library.IndexFile(ctx, path)
				if err != nil {
					slog.Warn("Failed to re-index document", "path", path, "error", err)
					continue
				}
				slog.Info("Re-indexed document", "path", path, "chunks", chunks)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Bibliography watch error", "error", err)
		}
	}
}
