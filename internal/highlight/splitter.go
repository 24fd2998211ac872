package highlight

import (
	"strings"

	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

// segment is a run of input that is either plain host text or a code block.
// Group is the script delimiter id, or -1 when the whole input is code.
type segment struct {
	code  bool
	group int
	text  string
}

// delimState tracks the cached next opener of one delimiter.
type delimState struct {
	d      *delimiter
	next   int
	cached bool
	dead   bool

	// pattern delimiters only
	closePos, closeLen int
}

// splitBlocks cuts code into plain and code segments. With Never strictness
// the whole input is a single code segment; with Always and no delimiters it
// is all plain text.
func splitBlocks(code string, delims []delimiter, strict ruleset.Strictness) []segment {
	if strict == ruleset.Never {
		return []segment{{code: true, group: -1, text: code}}
	}

	var (
		segs   []segment
		states = make([]delimState, len(delims))
		txt    *text
		n      = len(code)
		found  bool
	)
	for k := range delims {
		states[k].d = &delims[k]
	}

	i := 0
	for i < n {
		best, bestPos := -1, n+1
		for k := range states {
			st := &states[k]
			if st.dead {
				continue
			}
			if st.d.re == nil {
				if !st.cached || st.next < i {
					p := strings.Index(code[i:], st.d.open)
					if p < 0 {
						st.dead = true
						continue
					}
					st.next, st.cached = i+p, true
				}
				if st.next < bestPos {
					best, bestPos = k, st.next
				}
				continue
			}

			if txt == nil {
				txt = newText(code)
			}
			if !st.cached || st.next < i {
				start, closePos, closeLen, ok := matchPatternDelimiter(txt, st.d, i)
				if !ok {
					st.dead = true
					continue
				}
				st.next, st.closePos, st.closeLen, st.cached = start, closePos, closeLen, true
			}
			// A later pattern wins a tie.
			if st.next <= bestPos {
				best, bestPos = k, st.next
			}
		}

		if best < 0 {
			segs = appendPlain(segs, code[i:])
			break
		}

		st := &states[best]
		end := blockEnd(code, st, states, bestPos)
		if end <= i {
			// Zero-width block; never let it stall the cursor.
			st.dead = true
			continue
		}
		segs = appendPlain(segs, code[i:bestPos])
		segs = append(segs, segment{code: true, group: st.d.group, text: code[bestPos:end]})
		found = true
		i = end
	}

	if !found && strict == ruleset.Maybe {
		return []segment{{code: true, group: -1, text: code}}
	}
	log.Debug(log.CatEngine, "split blocks", "segments", len(segs))
	return segs
}

// blockEnd returns the end of the block opened at pos. Back-to-back literal
// blocks of the same family merge unless another delimiter's cached opener
// sits exactly at the boundary. An unclosed block runs to end of input.
func blockEnd(code string, st *delimState, states []delimState, pos int) int {
	n := len(code)
	d := st.d
	if d.re != nil {
		if st.closePos < 0 {
			return n
		}
		return st.closePos + st.closeLen
	}

	j := pos + len(d.open)
	for {
		c := strings.Index(code[j:], d.close)
		if c < 0 {
			return n
		}
		j += c + len(d.close)
		if j >= n || !strings.HasPrefix(code[j:], d.open) || claimed(states, st, j) {
			return j
		}
		j += len(d.open)
	}
}

func claimed(states []delimState, self *delimState, pos int) bool {
	for k := range states {
		other := &states[k]
		if other != self && !other.dead && other.cached && other.next == pos {
			return true
		}
	}
	return false
}

// matchPatternDelimiter finds the next block of a pattern delimiter at or
// after from. Named groups "start" and "end" take precedence over groups 1
// and 2.
func matchPatternDelimiter(txt *text, d *delimiter, from int) (start, closePos, closeLen int, ok bool) {
	sp, found, err := txt.find(d.re, from)
	if err != nil {
		log.Warn(log.CatEngine, "script delimiter match failed", "group", d.group, "error", err)
		return 0, 0, 0, false
	}
	if !found {
		return 0, 0, 0, false
	}
	m := sp.match
	open, closer := m.GroupByName("start"), m.GroupByName("end")
	if open == nil || closer == nil {
		open, closer = m.GroupByNumber(1), m.GroupByNumber(2)
	}
	s, _, okOpen := txt.group(open)
	if !okOpen {
		s = sp.start
	}
	cs, ce, okClose := txt.group(closer)
	if !okClose {
		return s, -1, 0, true
	}
	return s, cs, ce - cs, true
}

func appendPlain(segs []segment, s string) []segment {
	if s == "" {
		return segs
	}
	return append(segs, segment{group: -1, text: s})
}
