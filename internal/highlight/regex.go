package highlight

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// compile builds a regexp2 expression with the engine's match timeout.
func compile(expr string, opts regexp2.RegexOptions, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

// modifierOptions maps PCRE-style modifier letters onto regexp2 options.
// Unknown letters are ignored.
func modifierOptions(mods string) regexp2.RegexOptions {
	var opts regexp2.RegexOptions
	for _, m := range mods {
		switch m {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		}
	}
	return opts
}

// text indexes a string by rune so regexp2 rune offsets map back to bytes
// without re-decoding the input on every search.
type text struct {
	s     string
	runes []rune
	// offsets[k] is the byte offset of rune k; the final entry is len(s).
	offsets []int
}

func newText(s string) *text {
	t := &text{s: s, runes: make([]rune, 0, len(s)), offsets: make([]int, 0, len(s)+1)}
	for i, r := range s {
		t.runes = append(t.runes, r)
		t.offsets = append(t.offsets, i)
	}
	t.offsets = append(t.offsets, len(s))
	return t
}

// runeAt returns the index of the first rune starting at or after byte b.
func (t *text) runeAt(b int) int {
	return sort.SearchInts(t.offsets, b)
}

func (t *text) byteAt(r int) int {
	if r >= len(t.offsets) {
		return len(t.s)
	}
	return t.offsets[r]
}

// span is a match located in byte offsets.
type span struct {
	start, end int
	match      *regexp2.Match
}

// find returns the first non-empty match of re starting at or after byte
// offset from. Zero-length matches are stepped over.
func (t *text) find(re *regexp2.Regexp, from int) (span, bool, error) {
	r := t.runeAt(from)
	for r <= len(t.runes) {
		m, err := re.FindRunesMatchStartingAt(t.runes, r)
		if err != nil || m == nil {
			return span{}, false, err
		}
		if m.Length > 0 {
			return span{start: t.byteAt(m.Index), end: t.byteAt(m.Index + m.Length), match: m}, true, nil
		}
		r = m.Index + 1
	}
	return span{}, false, nil
}

// group returns the byte bounds of a capture group of m, or ok=false when
// it did not participate.
func (t *text) group(g *regexp2.Group) (start, end int, ok bool) {
	if g == nil || len(g.Captures) == 0 {
		return 0, 0, false
	}
	return t.byteAt(g.Index), t.byteAt(g.Index + g.Length), true
}

// expandRefs replaces \N in tmpl with capture group N of m.
func expandRefs(tmpl string, m *regexp2.Match) string {
	if !strings.Contains(tmpl, `\`) {
		return tmpl
	}
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '\\' || i+1 >= len(tmpl) || tmpl[i+1] < '0' || tmpl[i+1] > '9' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(tmpl) && tmpl[j] >= '0' && tmpl[j] <= '9' && j-i <= 2 {
			j++
		}
		n := 0
		for _, d := range tmpl[i+1 : j] {
			n = n*10 + int(d-'0')
		}
		if g := m.GroupByNumber(n); g != nil && len(g.Captures) > 0 {
			b.WriteString(g.String())
		}
		i = j - 1
	}
	return b.String()
}

// replaceAll runs fn over every match of re in s. On a match error (a
// timeout) s is returned unchanged with the error.
func replaceAll(re *regexp2.Regexp, s string, fn func(m regexp2.Match) string) (string, error) {
	out, err := re.ReplaceFunc(s, fn, -1, -1)
	if err != nil {
		return s, err
	}
	return out, nil
}
