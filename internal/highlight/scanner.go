package highlight

import (
	"strings"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

// lexeme recognises one token category at position i and returns its markup
// and the end of the consumed input.
type lexeme func(s *scanner, i int) (token string, end int, ok bool)

// lexemes are tried in priority order; the first match wins.
var lexemes = []lexeme{
	(*scanner).patternComment,
	(*scanner).multiComment,
	(*scanner).singleComment,
	(*scanner).stringLiteral,
	(*scanner).hardQuoted,
}

// nextMatch caches where a matcher next fires. A position is only searched
// again once the cursor moves past it.
type nextMatch struct {
	searched bool
	never    bool
	pos      int
	length   int
}

// cursor selects the nearest of several cached matchers.
type cursor struct {
	keys []nextMatch
	pos  int
	key  int
}

func newCursor(n int) cursor {
	return cursor{keys: make([]nextMatch, n), pos: -1}
}

// refresh recomputes the nearest match at or after i using search for keys
// whose cache is stale.
func (c *cursor) refresh(i, limit int, search func(k, from int) (pos, length int, ok bool)) {
	if c.pos >= i {
		return
	}
	c.pos = limit
	for k := range c.keys {
		m := &c.keys[k]
		if m.never {
			continue
		}
		if !m.searched || m.pos < i {
			pos, length, ok := search(k, i)
			if !ok {
				m.never = true
				continue
			}
			m.searched, m.pos, m.length = true, pos, length
		}
		if m.pos < c.pos {
			c.pos, c.key = m.pos, k
			if m.pos == i {
				break
			}
		}
	}
}

// scanner tokenizes one code segment.
type scanner struct {
	e     *Engine
	c     *parseCache
	rs    *ruleset.RuleSet
	perms *ruleset.Permissions

	src   string
	lower string
	txt   *text
	out   strings.Builder

	patterns cursor
	multi    cursor
	single   cursor
	escapes  cursor

	// quotes indexed by first byte, longest first.
	quotes map[byte][]string
}

func newScanner(e *Engine, c *parseCache, src string) *scanner {
	s := &scanner{
		e:        e,
		c:        c,
		rs:       e.rs,
		perms:    e.perms,
		src:      src,
		patterns: newCursor(len(c.comments)),
		multi:    newCursor(len(e.rs.Comments.Multi)),
		single:   newCursor(len(e.rs.Comments.Single)),
		escapes:  newCursor(len(c.escapes)),
	}
	if e.perms.Strings {
		s.quotes = make(map[byte][]string)
		for _, q := range e.rs.Strings.Quotes {
			if q.Mark == "" {
				continue
			}
			b := q.Mark[0]
			s.quotes[b] = insertLongestFirst(s.quotes[b], q.Mark)
		}
	}
	return s
}

func insertLongestFirst(marks []string, m string) []string {
	for i, x := range marks {
		if x == m {
			return marks
		}
		if len(m) > len(x) {
			marks = append(marks, "")
			copy(marks[i+1:], marks[i:])
			marks[i] = m
			return marks
		}
	}
	return append(marks, m)
}

// folded returns the segment with ASCII letters lowered; byte offsets match
// the source.
func (s *scanner) folded() string {
	if s.lower == "" && s.src != "" {
		s.lower = asciiLower(s.src)
	}
	return s.lower
}

func (s *scanner) text() *text {
	if s.txt == nil {
		s.txt = newText(s.src)
	}
	return s.txt
}

// run tokenizes the whole segment. Plain runs between tokens go through the
// classifier.
func (s *scanner) run() string {
	n := len(s.src)
	plainStart := 0
	for i := 0; i < n; {
		token, end, ok := s.match(i)
		if !ok || end <= i {
			i++
			continue
		}
		s.out.WriteString(s.e.classify(s.c, s.src[plainStart:i]))
		s.out.WriteString(token)
		plainStart, i = end, end
	}
	s.out.WriteString(s.e.classify(s.c, s.src[plainStart:]))
	return s.out.String()
}

func (s *scanner) match(i int) (string, int, bool) {
	for _, lx := range lexemes {
		if token, end, ok := lx(s, i); ok {
			return token, end, true
		}
	}
	return "", 0, false
}
