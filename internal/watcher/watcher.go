// Package watcher reports debounced changes to rule-set files in a directory.
package watcher

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/gensynth/internal/log"
)

// Change is one file that was written, created or removed.
type Change struct {
	Path    string
	Removed bool
}

// Watcher monitors a directory and delivers batches of changes once writes
// settle for the debounce interval.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	exts      []string
	debounce  time.Duration
	onChange  chan []Change
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Dir         string
	Extensions  []string // lowercase, with dot; empty matches every file
	DebounceDur time.Duration
}

// DefaultConfig watches dir for YAML rule-set files.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Extensions:  []string{".yaml", ".yml"},
		DebounceDur: 250 * time.Millisecond,
	}
}

// New creates a watcher. Start begins delivering events.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		exts:      cfg.Extensions,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan []Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directory and returns the batch channel. Batches list
// each path once, sorted, with its latest state.
func (w *Watcher) Start() (<-chan []Change, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]Change)
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			change, relevant := w.classify(event)
			if !relevant {
				continue
			}
			pending[change.Path] = change

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if len(pending) == 0 {
				continue
			}
			batch := slices.SortedFunc(maps.Values(pending), func(a, b Change) int {
				return strings.Compare(a.Path, b.Path)
			})
			clear(pending)
			select {
			case w.onChange <- batch:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "watch error", "dir", w.dir, "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// classify maps an fsnotify event to a change on a watched file.
func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	if len(w.exts) > 0 && !slices.Contains(w.exts, strings.ToLower(filepath.Ext(event.Name))) {
		return Change{}, false
	}
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Change{Path: event.Name, Removed: true}, true
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		return Change{Path: event.Name}, true
	}
	return Change{}, false
}
