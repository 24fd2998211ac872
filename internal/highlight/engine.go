// Package highlight turns source text into HTML-annotated markup driven by a
// ruleset.RuleSet.
package highlight

import (
	"errors"
	"strconv"
	"strings"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

// Repository resolves rule sets by name.
type Repository interface {
	Lookup(name string) (*ruleset.RuleSet, error)
}

// Engine highlights source for one rule set. It is not safe for concurrent
// use; give each goroutine its own Engine.
type Engine struct {
	rs    *ruleset.RuleSet
	perms *ruleset.Permissions
	opts  options
	err   error
	cache *parseCache
}

// New returns an Engine over rs. A nil rule set leaves the engine in the
// ErrRuleSetNotFound state.
func New(rs *ruleset.RuleSet, opts ...Option) *Engine {
	e := &Engine{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&e.opts)
	}
	if rs == nil {
		e.rs = &ruleset.RuleSet{}
		e.perms = ruleset.NewPermissions(e.rs)
		e.err = ErrRuleSetNotFound
		return e
	}
	e.rs = rs
	e.perms = ruleset.NewPermissions(rs)
	return e
}

// NewFromRepository looks name up in repo. A failed lookup is recorded as
// the engine's error state rather than returned.
func NewFromRepository(repo Repository, name string, opts ...Option) *Engine {
	rs, err := repo.Lookup(name)
	if err != nil {
		e := New(nil, opts...)
		e.err = err
		log.Warn(log.CatEngine, "rule set unavailable", "name", name, "error", err)
		return e
	}
	return New(rs, opts...)
}

// Err returns the recorded error state, if any.
func (e *Engine) Err() error { return e.err }

// SetError records an error state. Parse output degrades to escaped text
// until the error is cleared with SetError(nil).
func (e *Engine) SetError(err error) { e.err = err }

// Permissions exposes the engine's enable flags for tuning before Parse.
func (e *Engine) Permissions() *ruleset.Permissions { return e.perms }

// RuleSet returns the rule set the engine highlights with.
func (e *Engine) RuleSet() *ruleset.RuleSet { return e.rs }

// PatternErrors lists the rule-set expressions that failed to compile.
func (e *Engine) PatternErrors() []*PatternError {
	if e.err != nil {
		return nil
	}
	return e.parseCache().errs
}

func (e *Engine) strictness() ruleset.Strictness {
	strict := e.rs.Script.Strict
	if strict == ruleset.Maybe && e.opts.strict != nil {
		if *e.opts.strict {
			return ruleset.Always
		}
		return ruleset.Never
	}
	return strict
}

// Parse highlights source. Output is HTML: text is escaped and highlighted
// regions are wrapped in span elements. Line endings are normalized to \n.
func (e *Engine) Parse(source string) string {
	if e.err != nil {
		return restore(escape(source))
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")

	c := e.parseCache()
	var b strings.Builder
	b.Grow(len(source) * 2)
	for _, seg := range splitBlocks(source, c.delimiters, e.strictness()) {
		if !seg.code {
			b.WriteString(escape(seg.text))
			continue
		}
		var body string
		if seg.group < 0 || e.rs.Script.BlockHighlighted(seg.group) {
			body = newScanner(e, c, seg.text).run()
		} else {
			body = escape(seg.text)
		}
		if seg.group >= 0 && e.perms.Script {
			if style := e.rs.Script.Styles[seg.group]; style != "" {
				body = "<span" + e.attr("sc"+itoa(seg.group), style) + ">" + body + spanCloseTag
			}
		}
		b.WriteString(body)
	}
	out := b.String()
	if e.opts.splitLines {
		out = reopenLines(out)
	}
	return restore(out)
}

// attr renders a class or style attribute depending on the output mode.
func (e *Engine) attr(class, style string) string {
	if e.opts.classes {
		return ` class="` + class + `"`
	}
	return ` style="` + style + `"`
}

// resolve turns placeholders into span and anchor elements.
func (e *Engine) resolve(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); {
		c := s[i]
		if c != '<' && c != '|' {
			b.WriteByte(c)
			i++
			continue
		}
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, phClose):
			b.WriteString(spanCloseTag)
			i += len(phClose)
		case strings.HasPrefix(rest, dotSentinel):
			b.WriteByte('.')
			i += len(dotSentinel)
		case strings.HasPrefix(rest, phLink), strings.HasPrefix(rest, phPattern),
			strings.HasPrefix(rest, phKeyword), strings.HasPrefix(rest, "<|"):
			end := openerEnd(s, i)
			if end < 0 {
				b.WriteString(rest)
				return b.String()
			}
			b.WriteString(e.element(s, i, end))
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// element renders the opener s[i:end].
func (e *Engine) element(s string, i, end int) string {
	opener := s[i:end]
	switch {
	case strings.HasPrefix(opener, phLink):
		href := strings.ReplaceAll(opener[len(phLink):len(opener)-1], dotSentinel, ".")
		return e.linkOpen(href)
	case strings.HasPrefix(opener, phPattern):
		id, _ := strconv.Atoi(strings.TrimSuffix(opener[len(phPattern):], "!>"))
		return spanOpenTag + e.patternAttrs(id, s, end) + ">"
	case strings.HasPrefix(opener, phKeyword):
		return spanOpenTag + e.codeAttrs(strings.TrimSuffix(opener[len(phKeyword):], "/>")) + ">"
	default:
		return spanOpenTag + opener[2:]
	}
}

func (e *Engine) linkOpen(href string) string {
	var b strings.Builder
	b.WriteString("<a")
	if e.opts.linkTarget != "" {
		b.WriteString(` target="` + e.opts.linkTarget + `"`)
	}
	if !e.opts.classes && e.opts.linkStyle != "" {
		b.WriteString(` style="` + e.opts.linkStyle + `"`)
	}
	b.WriteString(" href=" + href + ">")
	return b.String()
}

// codeAttrs resolves the code inside a <|/CODE/> opener.
func (e *Engine) codeAttrs(code string) string {
	kind, num := "", code
	for _, k := range []string{phNumber, phMethod, phSymbol} {
		if strings.HasPrefix(code, k) {
			kind, num = k, code[len(k):]
			break
		}
	}
	id, _ := strconv.Atoi(num)
	switch kind {
	case phNumber:
		return e.attr("nu"+num, e.rs.Numbers.Style(id))
	case phMethod:
		var style string
		for _, sp := range e.rs.ObjectSplitters {
			if sp.ID == id {
				style = sp.Style
				break
			}
		}
		return e.attr("me"+num, style)
	case phSymbol:
		var style string
		for _, g := range e.rs.Symbols {
			if g.ID == id {
				style = g.Style
				break
			}
		}
		return e.attr("sy"+num, style)
	default:
		var style string
		if g, ok := e.rs.KeywordGroup(id); ok {
			style = g.Style
		}
		return e.attr("kw"+num, style)
	}
}

// patternAttrs resolves a pattern opener. Groups with a style function are
// styled from the plain text they wrap, which starts at from.
func (e *Engine) patternAttrs(id int, s string, from int) string {
	var p *ruleset.PatternGroup
	for k := range e.rs.Patterns {
		if e.rs.Patterns[k].ID == id {
			p = &e.rs.Patterns[k]
			break
		}
	}
	if p == nil {
		return e.attr("re"+itoa(id), "")
	}
	if p.StyleFunc != nil {
		return ` style="` + p.StyleFunc(patternContent(s, from)) + `"`
	}
	class := p.Class
	if class == "" {
		class = "re" + itoa(id)
	}
	return e.attr(class, p.Style)
}

// patternContent returns the plain text between from and the placeholder
// close that balances the opener ending at from.
func patternContent(s string, from int) string {
	depth := 1
	for j := from; j < len(s); {
		switch {
		case strings.HasPrefix(s[j:], phClose):
			depth--
			if depth == 0 {
				return stripMarkup(s[from:j])
			}
			j += len(phClose)
		case strings.HasPrefix(s[j:], phLink):
			j += len(phLink)
		case strings.HasPrefix(s[j:], "<|"):
			depth++
			j += 2
		default:
			j++
		}
	}
	return stripMarkup(s[from:])
}

// IsConfigurationError reports whether err stems from an invalid option or
// permission.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
