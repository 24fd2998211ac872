// Package repository resolves language names to rule sets. Definitions come
// from the embedded built-ins and an optional user directory whose files
// override built-ins of the same name.
package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	stdpath "path"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/gensynth/internal/cachemanager"
	"github.com/zjrosen/gensynth/internal/languages"
	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/pubsub"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

// Info describes one available language.
type Info struct {
	ID         string // lookup key, the file name without extension
	Name       string // display name
	Extensions []string
	User       bool // defined in the user directory
}

type entry struct {
	info Info
	fsys fs.FS
	path string
}

// Repository looks rule sets up by name. Decoded rule sets are cached; every
// Lookup returns an independent clone. It is safe for concurrent use.
type Repository struct {
	builtin fs.FS
	userDir string
	userFS  fs.FS
	ttl     time.Duration

	mu    sync.RWMutex
	index map[string]entry
	exts  map[string]string

	cache  *cachemanager.ReadThroughCache[string, *ruleset.RuleSet, string]
	broker *pubsub.Broker[string]
}

// Option configures a Repository.
type Option func(*Repository)

// WithBuiltin replaces the embedded definitions. A nil fs disables them.
func WithBuiltin(fsys fs.FS) Option {
	return func(r *Repository) { r.builtin = fsys }
}

// WithUserDir overlays definitions from dir. A missing directory is not an
// error.
func WithUserDir(dir string) Option {
	return func(r *Repository) {
		r.userDir = dir
		r.userFS = nil
	}
}

// WithUserFS overlays definitions from fsys.
func WithUserFS(fsys fs.FS) Option {
	return func(r *Repository) { r.userFS = fsys }
}

// WithCacheTTL sets how long a decoded rule set stays cached. Zero disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Repository) { r.ttl = ttl }
}

// New indexes every source. Files that cannot be indexed are logged and
// skipped; they surface as errors only when looked up.
func New(opts ...Option) (*Repository, error) {
	r := &Repository{
		builtin: languages.FS(),
		ttl:     cachemanager.DefaultExpiration,
		broker:  pubsub.NewBroker[string](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.userFS == nil && r.userDir != "" {
		if info, err := os.Stat(r.userDir); err == nil && info.IsDir() {
			r.userFS = os.DirFS(r.userDir)
		} else {
			log.Debug(log.CatRepo, "user languages directory unavailable", "dir", r.userDir)
		}
	}

	mgr := cachemanager.NewInMemoryCacheManager[string, *ruleset.RuleSet]("rulesets", r.ttl, cachemanager.DefaultCleanupInterval)
	r.cache = cachemanager.NewReadThroughCache[string, *ruleset.RuleSet, string](mgr, r.load, r.ttl <= 0)

	if err := r.reindex(); err != nil {
		return nil, err
	}
	return r, nil
}

// UserDir returns the configured user directory, if any.
func (r *Repository) UserDir() string { return r.userDir }

// Subscribe reports rule-set changes detected by Watch or Reload, limited to
// types when any are given. Payloads are language IDs;
// RuleSetsReloadedEvent carries an empty payload.
func (r *Repository) Subscribe(ctx context.Context, types ...pubsub.EventType) <-chan pubsub.Event[string] {
	return r.broker.SubscribeTypes(ctx, types...)
}

// Close releases subscribers.
func (r *Repository) Close() {
	r.broker.Close()
}

// Lookup returns a fresh copy of the named rule set.
func (r *Repository) Lookup(name string) (*ruleset.RuleSet, error) {
	return r.LookupContext(context.Background(), name)
}

// LookupContext is Lookup with a caller context for the cache layer.
func (r *Repository) LookupContext(ctx context.Context, name string) (*ruleset.RuleSet, error) {
	id := normalize(name)
	if id == "" {
		return nil, fmt.Errorf("empty language name: %w", ruleset.ErrNotFound)
	}
	rs, err := r.cache.Get(ctx, id, id, r.ttl)
	if err != nil {
		return nil, err
	}
	return rs.Clone(), nil
}

// Languages lists every available language sorted by ID.
func (r *Repository) Languages() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.index))
	for _, e := range r.index {
		out = append(out, e.info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// FromExtension returns the language registered for a file extension. The
// leading dot is optional.
func (r *Repository) FromExtension(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.exts[ext]
	return id, ok
}

// FromFilename resolves a language from a file name's extension.
func (r *Repository) FromFilename(name string) (string, bool) {
	ext := stdpath.Ext(strings.ReplaceAll(name, `\`, "/"))
	if ext == "" {
		return "", false
	}
	return r.FromExtension(ext)
}

// Reload re-indexes every source and drops cached rule sets.
func (r *Repository) Reload(ctx context.Context) error {
	if err := r.reindex(); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		return err
	}
	r.broker.Publish(pubsub.RuleSetsReloadedEvent, "")
	log.Info(log.CatRepo, "rule sets reloaded", "count", len(r.Languages()))
	return nil
}

// invalidate drops one cached rule set and announces the change.
func (r *Repository) invalidate(ctx context.Context, id string, removed bool) {
	if err := r.cache.Invalidate(ctx, id); err != nil {
		log.ErrorErr(log.CatRepo, "cache invalidation failed", err, "id", id)
	}
	ev := pubsub.RuleSetChangedEvent
	if removed {
		ev = pubsub.RuleSetRemovedEvent
	}
	r.broker.Publish(ev, id)
}

func (r *Repository) reindex() error {
	index := make(map[string]entry)
	exts := make(map[string]string)
	sources := []struct {
		fsys fs.FS
		user bool
	}{{r.builtin, false}, {r.userFS, true}}

	for _, src := range sources {
		if src.fsys == nil {
			continue
		}
		err := fs.WalkDir(src.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != "." {
					return fs.SkipDir
				}
				return nil
			}
			if !isDefinition(path) {
				return nil
			}
			id := normalize(strings.TrimSuffix(path, stdpath.Ext(path)))
			info, err := peek(src.fsys, path)
			if err != nil {
				log.Warn(log.CatRepo, "skipping unreadable definition", "path", path, "error", err)
				info = Info{}
			}
			info.ID, info.User = id, src.user
			if info.Name == "" {
				info.Name = id
			}
			if prev, ok := index[id]; ok {
				for _, ext := range prev.info.Extensions {
					delete(exts, strings.ToLower(ext))
				}
			}
			index[id] = entry{info: info, fsys: src.fsys, path: path}
			for _, ext := range info.Extensions {
				exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = id
			}
			return nil
		})
		if err != nil {
			if src.user {
				log.Warn(log.CatRepo, "scanning user languages failed", "dir", r.userDir, "error", err)
				continue
			}
			return fmt.Errorf("scan built-in languages: %w", err)
		}
	}

	r.mu.Lock()
	r.index, r.exts = index, exts
	r.mu.Unlock()
	log.Debug(log.CatRepo, "indexed rule sets", "count", len(index))
	return nil
}

// load reads, decodes and validates one rule set. It backs the read-through
// cache.
func (r *Repository) load(ctx context.Context, id string) (*ruleset.RuleSet, error) {
	r.mu.RLock()
	e, ok := r.index[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ruleset.ErrNotFound)
	}

	data, err := fs.ReadFile(e.fsys, e.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", e.path, ruleset.ErrUnreadable, err)
	}
	rs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.path, err)
	}
	log.Debug(log.CatRepo, "rule set loaded", "id", id, "path", e.path, "user", e.info.User)
	return rs, nil
}

// Decode parses and validates a rule-set definition. Every failure wraps
// ruleset.ErrMalformed.
func Decode(data []byte) (*ruleset.RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def FileDef
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %w", ruleset.ErrMalformed, err)
	}
	rs, err := buildRuleSet(&def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", def.Name, ruleset.ErrMalformed, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// peek reads only the header fields needed for the index.
func peek(fsys fs.FS, path string) (Info, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Info{}, err
	}
	var head struct {
		Name       string   `yaml:"name"`
		Extensions []string `yaml:"extensions"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Info{}, err
	}
	return Info{Name: head.Name, Extensions: head.Extensions}, nil
}

func isDefinition(path string) bool {
	ext := strings.ToLower(stdpath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsNotFound reports whether err means the language does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ruleset.ErrNotFound)
}
