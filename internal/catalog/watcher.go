package catalog

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SeedWatcher hot-reloads the CUE seed file while the server runs.
// Events are debounced because editors fire several writes per save, and
// the watch is on the parent directory because many editors replace the
// file instead of writing it in place.
type SeedWatcher struct {
	path     string
	store    Store
	debounce time.Duration
}

// NewSeedWatcher creates a watcher for the given seed file.
func NewSeedWatcher(path string, store Store) *SeedWatcher {
	return &SeedWatcher{
		path:     path,
		store:    store,
		debounce: 500 * time.Millisecond,
	}
}

// Run watches until the context is cancelled. Reload failures are logged
// and the previous catalogue stays in effect.
func (w *SeedWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("seed watcher: %v", err)
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload(ctx)
		}
	}
}

func (w *SeedWatcher) reload(ctx context.Context) {
	seed, err := LoadSeed(w.path)
	if err != nil {
		log.Printf("seed reload: %v", err)
		return
	}
	issues, err := ApplySeed(ctx, w.store, seed)
	if err != nil {
		log.Printf("seed reload: %v", err)
		return
	}
	for _, issue := range issues {
		log.Printf("seed reload: advisory %s %s: %s", issue.Target, issue.Field, issue.Message)
	}
	log.Printf("seed reloaded from %s: %d definitions, %d rules, %d relationship types, %d entities",
		w.path, len(seed.Definitions), len(seed.Rules), len(seed.RelationshipTypes), len(seed.Entities))
}
