// Package flags holds the configured permission overrides: category switches
// such as "symbols" or "keywords:3" applied on top of a rule set's defaults.
// The registry is read-only after initialization.
package flags

import (
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

// Registry holds permission overrides loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. Names are normalized to lower
// case. A nil map yields an empty registry.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: make(map[string]bool, len(flags))}
	for name, on := range flags {
		r.flags[strings.ToLower(strings.TrimSpace(name))] = on
	}
	log.Debug(log.CatConfig, "Permission overrides initialized", "count", len(r.flags), "flags", r.All())
	return r
}

// Enabled reports whether the named override is set and true. Unknown names
// and a nil registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[strings.ToLower(name)]
}

// Has reports whether name is overridden at all.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.flags[strings.ToLower(name)]
	return ok
}

// All returns a copy of every override.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}

// Apply switches p according to the overrides. "all" applies first, then
// whole categories, then single groups, so narrower names win.
func (r *Registry) Apply(p *ruleset.Permissions) error {
	if r == nil {
		return nil
	}
	for _, name := range r.ordered() {
		if err := p.Set(name, r.flags[name]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every name against the known categories.
func (r *Registry) Validate() error {
	return r.Apply(ruleset.NewPermissions(&ruleset.RuleSet{}))
}

func (r *Registry) ordered() []string {
	rank := func(name string) int {
		switch {
		case name == ruleset.PermAll:
			return 0
		case strings.Contains(name, ":"):
			return 2
		default:
			return 1
		}
	}
	names := slices.Collect(maps.Keys(r.flags))
	slices.SortFunc(names, func(a, b string) int {
		if d := rank(a) - rank(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return names
}
