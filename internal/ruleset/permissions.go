package ruleset

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Permission category names accepted by Set and by EnableFlags.
const (
	PermAll      = "all"
	PermKeywords = "keywords"
	PermComments = "comments"
	PermMulti    = "multi"
	PermPatterns = "patterns"
	PermEscape   = "escape"
	PermBrackets = "brackets"
	PermSymbols  = "symbols"
	PermStrings  = "strings"
	PermNumbers  = "numbers"
	PermMethods  = "methods"
	PermScript   = "script"
)

// Permissions switches lexical categories on or off independently of the
// rule set. Group maps treat a missing entry as enabled.
type Permissions struct {
	Keywords map[int]bool
	Comments map[int]bool
	Patterns map[int]bool
	Multi    bool
	Escape   bool
	Brackets bool
	Symbols  bool
	Strings  bool
	Numbers  bool
	Methods  bool
	Script   bool
}

// NewPermissions enables every group rs declares, leaves symbols off, then
// applies the rule set's EnableFlags.
func NewPermissions(rs *RuleSet) *Permissions {
	p := &Permissions{
		Keywords: make(map[int]bool, len(rs.Keywords)),
		Comments: make(map[int]bool, len(rs.Comments.Single)),
		Patterns: make(map[int]bool, len(rs.Patterns)),
		Multi:    true,
		Escape:   true,
		Brackets: true,
		Strings:  true,
		Numbers:  true,
		Methods:  true,
		Script:   true,
	}
	for _, g := range rs.Keywords {
		p.Keywords[g.ID] = true
	}
	for _, c := range rs.Comments.Single {
		p.Comments[c.ID] = true
	}
	for _, c := range rs.Comments.Patterns {
		p.Comments[c.ID] = true
	}
	for _, g := range rs.Patterns {
		p.Patterns[g.ID] = true
	}

	// "all" first so category flags can refine it.
	if s, ok := rs.Control.EnableFlags[PermAll]; ok {
		p.EnableAll(s != Never)
	}
	for name, s := range rs.Control.EnableFlags {
		if name == PermAll {
			continue
		}
		_ = p.Set(name, s != Never)
	}
	return p
}

// EnableAll switches every category and group.
func (p *Permissions) EnableAll(on bool) {
	setAll(p.Keywords, on)
	setAll(p.Comments, on)
	setAll(p.Patterns, on)
	p.Multi = on
	p.Escape = on
	p.Brackets = on
	p.Symbols = on
	p.Strings = on
	p.Numbers = on
	p.Methods = on
	p.Script = on
}

// Set switches a category by name. A "keywords:N", "comments:N" or
// "patterns:N" name addresses a single group.
func (p *Permissions) Set(name string, on bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if cat, id, ok := strings.Cut(name, ":"); ok {
		n, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("permission %q: invalid group id", name)
		}
		switch cat {
		case PermKeywords:
			p.Keywords[n] = on
		case PermComments:
			p.Comments[n] = on
		case PermPatterns:
			p.Patterns[n] = on
		default:
			return fmt.Errorf("permission %q: category has no groups", name)
		}
		return nil
	}

	switch name {
	case PermAll:
		p.EnableAll(on)
	case PermKeywords:
		setAll(p.Keywords, on)
	case PermComments:
		setAll(p.Comments, on)
		p.Multi = on
	case PermPatterns:
		setAll(p.Patterns, on)
	case PermMulti:
		p.Multi = on
	case PermEscape:
		p.Escape = on
	case PermBrackets:
		p.Brackets = on
	case PermSymbols:
		p.Symbols = on
	case PermStrings:
		p.Strings = on
	case PermNumbers:
		p.Numbers = on
	case PermMethods:
		p.Methods = on
	case PermScript:
		p.Script = on
	default:
		return fmt.Errorf("unknown permission %q", name)
	}
	return nil
}

// Keyword reports whether keyword group id is enabled.
func (p *Permissions) Keyword(id int) bool { return enabled(p.Keywords, id) }

// Comment reports whether single-line or pattern comment group id is enabled.
func (p *Permissions) Comment(id int) bool { return enabled(p.Comments, id) }

// Pattern reports whether pattern group id is enabled.
func (p *Permissions) Pattern(id int) bool { return enabled(p.Patterns, id) }

// Clone returns an independent copy.
func (p *Permissions) Clone() *Permissions {
	c := *p
	c.Keywords = maps.Clone(p.Keywords)
	c.Comments = maps.Clone(p.Comments)
	c.Patterns = maps.Clone(p.Patterns)
	if c.Keywords == nil {
		c.Keywords = map[int]bool{}
	}
	if c.Comments == nil {
		c.Comments = map[int]bool{}
	}
	if c.Patterns == nil {
		c.Patterns = map[int]bool{}
	}
	return &c
}

func enabled(m map[int]bool, id int) bool {
	on, ok := m[id]
	return !ok || on
}

func setAll(m map[int]bool, on bool) {
	for k := range m {
		m[k] = on
	}
}
