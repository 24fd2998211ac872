package highlight

import (
	"net/url"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

// classify highlights a plain run (no strings, no comments). Every stage
// writes placeholders that later stages step over; attributes are resolved
// in one final pass.
func (e *Engine) classify(c *parseCache, run string) string {
	if run == "" {
		return ""
	}
	s := " " + escape(run)
	s = e.highlightKeywords(c, s)
	s = e.highlightPatterns(c, s)
	s = e.highlightNumbers(c, s)
	s = e.highlightMethods(c, s)
	s = e.highlightBrackets(s)
	s = e.highlightSymbols(c, s)
	return dropLeadingSpace(e.resolve(s))
}

func (e *Engine) highlightKeywords(c *parseCache, s string) string {
	for i := range c.keywords {
		rule := &c.keywords[i]
		if !e.perms.Keyword(rule.group.ID) {
			continue
		}
		out, err := replaceAll(rule.re, s, func(m regexp2.Match) string {
			return e.keywordReplace(rule, m.String())
		})
		if err != nil {
			log.Warn(log.CatEngine, "keyword match failed", "group", rule.group.ID, "error", err)
			continue
		}
		s = out
	}
	return s
}

func (e *Engine) keywordReplace(rule *keywordRule, kw string) string {
	g := rule.group
	multiline := strings.Contains(kw, "\n")
	if e.rs.CaseKeywords != ruleset.CapsNoChange {
		kw = escape(e.rs.CaseKeywords.Apply(unescape(kw)))
	}
	body := kw
	if multiline && e.opts.splitLines {
		body = splitPlaceholder(rule.open, kw)
	}
	tok := rule.open + body + phClose
	if !e.opts.keywordLinks || g.URL == "" || (multiline && e.opts.splitLines) {
		return tok
	}
	return phLink + `"` + keywordURL(g, unescape(kw)) + `">` + tok + phLinkClose
}

// keywordURL fills a group's URL template. Case-insensitive groups link to
// the word as declared.
func keywordURL(g *ruleset.KeywordGroup, word string) string {
	if !g.CaseSensitive && strings.Contains(g.URL, "{FNAME}") {
		for _, w := range g.Words {
			if strings.EqualFold(w, word) {
				word = w
				break
			}
		}
	}
	enc := func(s string) string {
		return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	}
	u := strings.NewReplacer(
		"{FNAME}", enc(word),
		"{FNAMEL}", enc(strings.ToLower(word)),
		"{FNAMEU}", enc(strings.ToUpper(word)),
	).Replace(g.URL)
	return strings.ReplaceAll(u, ".", dotSentinel)
}

func (e *Engine) highlightPatterns(c *parseCache, s string) string {
	for i := range c.patterns {
		rule := &c.patterns[i]
		p := rule.group
		if !e.perms.Pattern(p.ID) {
			continue
		}
		split := e.opts.splitLines
		out, err := replaceAll(rule.re, s, func(m regexp2.Match) string {
			body := m.String()
			if p.Replace != "" {
				body = expandRefs(p.Replace, &m)
			}
			if split {
				body = splitPlaceholder(rule.open, body)
			}
			return expandRefs(p.Before, &m) + rule.open + body + phClose + expandRefs(p.After, &m)
		})
		if err != nil {
			log.Warn(log.CatEngine, "pattern match failed", "group", p.ID, "error", err)
			continue
		}
		s = out
	}
	return s
}

func (e *Engine) highlightNumbers(c *parseCache, s string) string {
	if !e.perms.Numbers || len(c.numbers) == 0 {
		return s
	}
	if c.numberPrecheck != nil {
		if ok, err := c.numberPrecheck.MatchString(s); err != nil || !ok {
			return s
		}
	}
	for _, r := range c.numbers {
		open := numberOpen(r.group)
		out, err := replaceAll(r.re, s, func(m regexp2.Match) string {
			return open + m.String() + phClose
		})
		if err != nil {
			log.Warn(log.CatEngine, "number match failed", "group", r.group, "error", err)
			continue
		}
		s = out
	}
	return s
}

func (e *Engine) highlightMethods(c *parseCache, s string) string {
	if !e.perms.Methods || !e.rs.OOLang {
		return s
	}
	for _, mr := range c.methods {
		if !strings.Contains(s, mr.token) {
			continue
		}
		open := methodOpen(mr.id)
		out, err := replaceAll(mr.re, s, func(m regexp2.Match) string {
			return m.GroupByNumber(1).String() + m.GroupByNumber(2).String() + m.GroupByNumber(3).String() +
				open + m.GroupByNumber(4).String() + phClose
		})
		if err != nil {
			log.Warn(log.CatEngine, "member access match failed", "splitter", mr.id, "error", err)
			continue
		}
		s = out
	}
	return s
}

var bracketEntities = map[byte]string{
	'[': "&#91;",
	']': "&#93;",
	'(': "&#40;",
	')': "&#41;",
	'{': "&#123;",
	'}': "&#125;",
}

// highlightBrackets swaps bracket characters for wrapped entities outside
// placeholder openers.
func (e *Engine) highlightBrackets(s string) string {
	if !e.perms.Brackets || !strings.ContainsAny(s, "[](){}") {
		return s
	}
	attrs := ` class="br0"`
	if !e.opts.classes && e.rs.Brackets.Style != "" {
		attrs = ` style="` + e.rs.Brackets.Style + `"`
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "<|") {
			end := openerEnd(s, i)
			if end < 0 {
				b.WriteString(s[i:])
				break
			}
			b.WriteString(s[i:end])
			i = end
			continue
		}
		if ent, ok := bracketEntities[s[i]]; ok {
			b.WriteString("<|" + attrs + ">" + ent + phClose)
		} else {
			b.WriteByte(s[i])
		}
		i++
	}
	return b.String()
}

// highlightSymbols wraps runs of symbols. Runs inside earlier placeholders
// are matched by the scan expression and left alone.
func (e *Engine) highlightSymbols(c *parseCache, s string) string {
	if !e.perms.Symbols || c.symbolScan == nil {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	last := 0
	m, err := c.symbolScan.FindRunesMatch(runes)
	for ; m != nil && err == nil; m, err = c.symbolScan.FindNextMatch(m) {
		run := m.String()
		if strings.HasPrefix(run, "<|") || run == phLinkClose || m.Length == 0 {
			continue
		}
		hl, ok := e.symbolRun(c, run)
		if !ok {
			continue
		}
		b.WriteString(string(runes[last:m.Index]))
		b.WriteString(hl)
		last = m.Index + m.Length
	}
	if err != nil {
		log.Warn(log.CatEngine, "symbol match failed", "error", err)
		return s
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}

// symbolRun wraps one run, switching wrappers only where the symbol group
// changes.
func (e *Engine) symbolRun(c *parseCache, run string) (string, bool) {
	if !c.symbolMulti {
		return symbolOpen(c.symbolGroup) + run + phClose, true
	}
	var b strings.Builder
	current := -1
	rs := []rune(run)
	last := 0
	m, err := c.symbolSplit.FindRunesMatch(rs)
	for ; m != nil && err == nil; m, err = c.symbolSplit.FindNextMatch(m) {
		sym := m.String()
		b.WriteString(string(rs[last:m.Index]))
		last = m.Index + m.Length
		if g, ok := c.symbolGroups[sym]; ok && g != current {
			if current != -1 {
				b.WriteString(phClose)
			}
			current = g
			b.WriteString(symbolOpen(g))
		}
		b.WriteString(sym)
	}
	if err != nil {
		return "", false
	}
	b.WriteString(string(rs[last:]))
	if current != -1 {
		b.WriteString(phClose)
	}
	return b.String(), true
}

// dropLeadingSpace removes the space classify prepends, which may sit
// behind markup when a pattern matched it.
func dropLeadingSpace(s string) string {
	i := 0
	for i < len(s) && s[i] == '<' {
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			return s
		}
		i += end + 1
	}
	if i < len(s) && s[i] == ' ' {
		return s[:i] + s[i+1:]
	}
	return s
}
