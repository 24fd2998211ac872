package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/watcher"
)

// ErrNoUserDir is returned by Watch when no user directory is configured.
var ErrNoUserDir = errors.New("no user languages directory")

// Watch follows the user directory until ctx is done. Edited files are
// evicted from the cache; added or removed files trigger a re-index.
func (r *Repository) Watch(ctx context.Context, cfg watcher.Config) error {
	if r.userDir == "" {
		return ErrNoUserDir
	}
	cfg.Dir = r.userDir
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	log.Info(log.CatWatcher, "watching user languages", "dir", r.userDir)

	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-changes:
				if !ok {
					return
				}
				r.apply(ctx, batch)
			}
		}
	}()
	return nil
}

func (r *Repository) apply(ctx context.Context, batch []watcher.Change) {
	reindex := false
	for _, c := range batch {
		base := filepath.Base(c.Path)
		id := normalize(strings.TrimSuffix(base, filepath.Ext(base)))
		r.mu.RLock()
		e, known := r.index[id]
		r.mu.RUnlock()
		if c.Removed || !known || !e.info.User {
			reindex = true
		}
	}
	if reindex {
		if err := r.reindex(); err != nil {
			log.ErrorErr(log.CatWatcher, "re-index failed", err)
		}
	}
	for _, c := range batch {
		base := filepath.Base(c.Path)
		id := normalize(strings.TrimSuffix(base, filepath.Ext(base)))
		log.Debug(log.CatWatcher, "rule set changed", "id", id, "removed", c.Removed)
		r.invalidate(ctx, id, c.Removed)
	}
}
