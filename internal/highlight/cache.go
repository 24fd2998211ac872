package highlight

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/optimizer"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

const (
	defaultDisallowedBefore = `(?<![a-zA-Z0-9\$_\|\#\^&<`
	defaultDisallowedAfter  = `(?![a-zA-Z0-9_\|%\-&;>`
	keywordFileGuard        = `(?!<DOT>(?:htm|php|aspx?))`

	defaultOOSpaces = `[\s]*`
	defaultOOAfter  = `[a-zA-Z][a-zA-Z0-9_]*`
)

// keywordRule is one compiled fragment of a keyword group.
type keywordRule struct {
	group *ruleset.KeywordGroup
	open  string
	// before/after are the boundary lookarounds used to compile re; patches
	// recompile the last fragment with the same boundaries.
	before, after string
	fragment      string
	re            *regexp2.Regexp
}

type patternRule struct {
	group *ruleset.PatternGroup
	open  string
	re    *regexp2.Regexp
}

type commentRule struct {
	id int
	re *regexp2.Regexp
}

type methodRule struct {
	id    int
	token string
	re    *regexp2.Regexp
}

type delimiter struct {
	group       int
	open, close string
	re          *regexp2.Regexp
}

// parseCache holds every expression derived from a rule set. It is rebuilt
// when the rule set's generation or the string permission changes and
// patched in place for words added to existing keyword groups.
type parseCache struct {
	generation uint64
	patches    int
	strings    bool

	keywords       []keywordRule
	patterns       []patternRule
	numbers        []numberRule
	numberPrecheck *regexp2.Regexp
	methods        []methodRule
	comments       []commentRule
	escapes        []commentRule
	delimiters     []delimiter

	symbolScan   *regexp2.Regexp
	symbolSplit  *regexp2.Regexp
	symbolGroups map[string]int
	symbolMulti  bool
	symbolGroup  int

	errs []*PatternError
}

func (e *Engine) parseCache() *parseCache {
	c := e.cache
	if c == nil || c.generation != e.rs.Generation() || c.strings != e.perms.Strings {
		c = e.buildCache()
		e.cache = c
		for _, pe := range c.errs {
			log.Warn(log.CatEngine, "pattern skipped", "ruleset", e.rs.Name, "category", pe.Category, "group", pe.Group, "error", pe.Err)
		}
	}
	if patches := e.rs.Patches(c.patches); len(patches) > 0 {
		e.applyPatches(c, patches)
		c.patches += len(patches)
	}
	return c
}

func (e *Engine) buildCache() *parseCache {
	rs := e.rs
	c := &parseCache{
		generation: rs.Generation(),
		patches:    len(rs.Patches(0)),
		strings:    e.perms.Strings,
	}
	timeout := e.opts.matchTimeout

	e.buildKeywords(c)

	for i := range rs.Patterns {
		p := &rs.Patterns[i]
		re, err := compile(p.Search, modifierOptions(p.Modifiers), timeout)
		if err != nil {
			c.errs = append(c.errs, &PatternError{Category: ruleset.PermPatterns, Group: p.ID, Err: err})
			continue
		}
		c.patterns = append(c.patterns, patternRule{group: p, open: patternOpen(p.ID), re: re})
	}

	rules, errs := newNumberRules(&rs.Numbers, timeout)
	c.numbers = rules
	c.errs = append(c.errs, errs...)
	precheck := rs.Control.NumbersPrecheck
	if precheck == "" {
		precheck = defaultNumbersPrecheck
	}
	if re, err := compile(precheck, regexp2.None, timeout); err == nil {
		c.numberPrecheck = re
	} else {
		c.errs = append(c.errs, &PatternError{Category: ruleset.PermNumbers, Group: -1, Err: err})
	}

	if rs.OOLang {
		oo := rs.Control.OO
		spaces := cmp.Or(oo.MatchSpaces, defaultOOSpaces)
		after := cmp.Or(oo.MatchAfter, defaultOOAfter)
		for _, sp := range rs.ObjectSplitters {
			if sp.Token == "" {
				continue
			}
			token := escape(sp.Token)
			expr := "(" + oo.MatchBefore + ")(" + optimizer.Quote(token) + ")(" + spaces + ")(" + after + ")"
			re, err := compile(expr, regexp2.None, timeout)
			if err != nil {
				c.errs = append(c.errs, &PatternError{Category: ruleset.PermMethods, Group: sp.ID, Err: err})
				continue
			}
			c.methods = append(c.methods, methodRule{id: sp.ID, token: token, re: re})
		}
	}

	for _, pc := range rs.Comments.Patterns {
		re, err := compile(pc.Pattern, regexp2.None, timeout)
		if err != nil {
			c.errs = append(c.errs, &PatternError{Category: ruleset.PermComments, Group: pc.ID, Err: err})
			continue
		}
		c.comments = append(c.comments, commentRule{id: pc.ID, re: re})
	}
	for _, ep := range rs.Strings.EscapePatterns {
		re, err := compile(ep.Pattern, regexp2.None, timeout)
		if err != nil {
			c.errs = append(c.errs, &PatternError{Category: ruleset.PermEscape, Group: ep.ID, Err: err})
			continue
		}
		c.escapes = append(c.escapes, commentRule{id: ep.ID, re: re})
	}
	for _, d := range rs.Script.Delimiters {
		if !d.IsPattern() {
			c.delimiters = append(c.delimiters, delimiter{group: d.ID, open: d.Open, close: d.Close})
			continue
		}
		re, err := compile(d.Pattern, regexp2.None, timeout)
		if err != nil {
			c.errs = append(c.errs, &PatternError{Category: ruleset.PermScript, Group: d.ID, Err: err})
			continue
		}
		c.delimiters = append(c.delimiters, delimiter{group: d.ID, re: re})
	}

	e.buildSymbols(c)
	return c
}

// keywordBounds returns the lookarounds for a keyword group: the per-group
// override, then the global override, then the defaults extended by the
// quote marks when strings are highlighted.
func (e *Engine) keywordBounds(id int) (before, after string) {
	ctl := e.rs.Control
	before, after = defaultDisallowedBefore, defaultDisallowedAfter
	if e.perms.Strings {
		q := quoteClass(e.rs.QuoteMarks())
		before += q
		after += q
	}
	before += "])"
	after += "])"
	if ctl.Keywords.DisallowedBefore != "" {
		before = ctl.Keywords.DisallowedBefore
	}
	if ctl.Keywords.DisallowedAfter != "" {
		after = ctl.Keywords.DisallowedAfter
	}
	if g, ok := ctl.KeywordGroups[id]; ok {
		before = cmp.Or(g.DisallowedBefore, before)
		after = cmp.Or(g.DisallowedAfter, after)
	}
	return before, after
}

func (e *Engine) spaceAsWhitespace(id int) bool {
	ctl := e.rs.Control
	on := ctl.Keywords.SpaceAsWhitespace != nil && *ctl.Keywords.SpaceAsWhitespace
	if g, ok := ctl.KeywordGroups[id]; ok && g.SpaceAsWhitespace != nil {
		on = *g.SpaceAsWhitespace
	}
	return on
}

func (e *Engine) buildKeywords(c *parseCache) {
	for i := range e.rs.Keywords {
		c.keywords = append(c.keywords, e.keywordRules(c, &e.rs.Keywords[i])...)
	}
}

func (e *Engine) keywordRules(c *parseCache, g *ruleset.KeywordGroup) []keywordRule {
	before, after := e.keywordBounds(g.ID)
	opts := e.opts.optimizer
	opts.SpaceAsWhitespace = e.spaceAsWhitespace(g.ID)
	var rules []keywordRule
	for _, frag := range optimizer.Optimize(g.Words, opts) {
		rule := keywordRule{group: g, open: keywordOpen(g.ID), before: before, after: after, fragment: frag}
		if err := e.compileKeyword(&rule); err != nil {
			c.errs = append(c.errs, &PatternError{Category: ruleset.PermKeywords, Group: g.ID, Err: err})
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func (e *Engine) compileKeyword(rule *keywordRule) error {
	opts := regexp2.None
	if !rule.group.CaseSensitive {
		opts = regexp2.IgnoreCase
	}
	re, err := compile(rule.before+"("+rule.fragment+")"+keywordFileGuard+rule.after, opts, e.opts.matchTimeout)
	if err != nil {
		return err
	}
	rule.re = re
	return nil
}

// applyPatches extends the last fragment of each patched group with the new
// words instead of re-running the optimizer.
func (e *Engine) applyPatches(c *parseCache, patches []ruleset.KeywordPatch) {
	for _, p := range patches {
		idx := -1
		for i := range c.keywords {
			if c.keywords[i].group.ID == p.Group {
				idx = i
			}
		}
		g, ok := e.rs.KeywordGroup(p.Group)
		if !ok {
			continue
		}
		if idx < 0 {
			c.keywords = append(c.keywords, e.keywordRules(c, g)...)
			continue
		}
		opts := e.opts.optimizer
		opts.SpaceAsWhitespace = e.spaceAsWhitespace(g.ID)
		rule := &c.keywords[idx]
		if frag, ok := optimizer.Extend(rule.fragment, p.Word, opts); ok {
			rule.fragment = frag
			if err := e.compileKeyword(rule); err != nil {
				c.errs = append(c.errs, &PatternError{Category: ruleset.PermKeywords, Group: g.ID, Err: err})
				c.keywords = slices.Delete(c.keywords, idx, idx+1)
			}
		} else {
			// the last fragment is full; the word starts a new one
			next := keywordRule{group: g, open: rule.open, before: rule.before, after: rule.after}
			next.fragment = optimizer.Optimize([]string{p.Word}, opts)[0]
			if err := e.compileKeyword(&next); err != nil {
				c.errs = append(c.errs, &PatternError{Category: ruleset.PermKeywords, Group: g.ID, Err: err})
				continue
			}
			c.keywords = slices.Insert(c.keywords, idx+1, next)
		}
		log.Debug(log.CatEngine, "keyword patched", "ruleset", e.rs.Name, "group", p.Group, "word", p.Word)
	}
}

// buildSymbols prepares the symbol run scanner. Symbols are indexed in their
// escaped form; multi-character symbols are tried longest first.
func (e *Engine) buildSymbols(c *parseCache) {
	c.symbolGroups = make(map[string]int)
	var multi, single []string
	for _, g := range e.rs.Symbols {
		for _, sym := range g.Symbols {
			esc := escape(sym)
			if esc == "" {
				continue
			}
			if _, dup := c.symbolGroups[esc]; dup {
				continue
			}
			c.symbolGroups[esc] = g.ID
			if len([]rune(esc)) > 1 {
				multi = append(multi, optimizer.Quote(esc))
			} else {
				single = append(single, optimizer.Quote(esc))
			}
		}
	}
	if len(multi) == 0 && len(single) == 0 {
		return
	}
	c.symbolMulti = len(e.rs.Symbols) > 1
	if len(e.rs.Symbols) > 0 {
		c.symbolGroup = e.rs.Symbols[0].ID
	}

	slices.Sort(multi)
	slices.Reverse(multi)
	slices.Sort(single)
	slices.Reverse(single)
	var alts []string
	if len(multi) > 0 {
		alts = append(alts, strings.Join(multi, "|"))
	}
	if len(single) > 0 {
		alts = append(alts, "["+strings.Join(single, "")+"]")
	}
	search := strings.Join(alts, "|")

	scan := `<\|(?:<DOT>|[^>])+>(?:(?!\|>).*?)\|>|</a>|(?:` + search + `)+(?![^<]+?>)`
	var err error
	if c.symbolScan, err = compile(scan, regexp2.None, e.opts.matchTimeout); err != nil {
		c.errs = append(c.errs, &PatternError{Category: ruleset.PermSymbols, Group: -1, Err: err})
		c.symbolScan = nil
		return
	}
	if c.symbolSplit, err = compile(search, regexp2.None, e.opts.matchTimeout); err != nil {
		c.errs = append(c.errs, &PatternError{Category: ruleset.PermSymbols, Group: -1, Err: err})
		c.symbolScan, c.symbolSplit = nil, nil
	}
}

func quoteClass(marks string) string {
	var b strings.Builder
	seen := make(map[rune]bool)
	for _, r := range marks {
		if seen[r] {
			continue
		}
		seen[r] = true
		b.WriteString(optimizer.Quote(string(r)))
	}
	return b.String()
}
