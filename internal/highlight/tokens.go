package highlight

import (
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/gensynth/internal/log"
)

func (s *scanner) patternComment(i int) (string, int, bool) {
	if len(s.c.comments) == 0 {
		return "", 0, false
	}
	s.patterns.refresh(i, len(s.src), func(k, from int) (int, int, bool) {
		sp, ok, err := s.text().find(s.c.comments[k].re, from)
		if err != nil {
			log.Warn(log.CatEngine, "comment pattern match failed", "group", s.c.comments[k].id, "error", err)
		}
		return sp.start, sp.end - sp.start, ok
	})
	if s.patterns.pos != i {
		return "", 0, false
	}
	rule := s.c.comments[s.patterns.key]
	end := i + s.patterns.keys[s.patterns.key].length
	body := escape(s.src[i:end])
	if s.perms.Multi && s.perms.Comment(rule.id) {
		body = s.wrapComment(s.e.attr("co"+itoa(rule.id), s.rs.Comments.Styles[rule.id]), body)
	}
	return body, end, true
}

func (s *scanner) multiComment(i int) (string, int, bool) {
	multi := s.rs.Comments.Multi
	if len(multi) == 0 {
		return "", 0, false
	}
	s.multi.refresh(i, len(s.src), func(k, from int) (int, int, bool) {
		open := multi[k].Open
		if open == "" {
			return 0, 0, false
		}
		p := strings.Index(s.folded()[from:], asciiLower(open))
		return from + p, len(open), p >= 0
	})
	if s.multi.pos != i {
		return "", 0, false
	}
	mc := multi[s.multi.key]
	end := len(s.src)
	from := i + len(mc.Open)
	if p := strings.Index(s.src[from:], mc.Close); p >= 0 {
		end = from + p + len(mc.Close)
	}
	body := escape(s.src[i:end])
	if s.perms.Multi {
		body = s.wrapComment(s.e.attr("coMULTI", s.rs.Comments.MultiStyle), body)
	}
	return body, end, true
}

func (s *scanner) singleComment(i int) (string, int, bool) {
	single := s.rs.Comments.Single
	if len(single) == 0 {
		return "", 0, false
	}
	n := len(s.src)
	s.single.refresh(i, n, func(k, from int) (int, int, bool) {
		marker := single[k].Marker
		if marker == "" {
			return 0, 0, false
		}
		var p int
		if s.rs.Comments.CaseSensitive {
			p = strings.Index(s.src[from:], marker)
		} else {
			p = strings.Index(s.folded()[from:], asciiLower(marker))
		}
		return from + p, len(marker), p >= 0
	})
	if s.single.pos != i {
		return "", 0, false
	}

	sc := single[s.single.key]
	ml := len(sc.Marker)
	ctl := s.rs.Control.Comments
	if ctl.DisallowedBefore != "" && i > 0 && strings.IndexByte(ctl.DisallowedBefore, s.src[i-1]) >= 0 {
		return "", 0, false
	}
	if ctl.DisallowedAfter != "" && i+ml < n && strings.IndexByte(ctl.DisallowedAfter, s.src[i+ml]) >= 0 {
		return "", 0, false
	}

	lineEnd, end := n, n
	if nl := strings.IndexByte(s.src[i:], '\n'); nl >= 0 {
		lineEnd, end = i+nl, i+nl+1
	}
	marker, rest := s.src[i:i+ml], s.src[i+ml:lineEnd]
	var tok string
	if s.perms.Comment(sc.ID) {
		tok = "<span" + s.e.attr("co"+itoa(sc.ID), s.rs.Comments.Styles[sc.ID]) + ">" +
			escape(s.rs.CaseKeywords.Apply(marker)) + escape(rest) + spanCloseTag
	} else {
		tok = escape(marker + rest)
	}
	if end > lineEnd {
		tok += "\n"
	}
	return tok, end, true
}

func (s *scanner) stringLiteral(i int) (string, int, bool) {
	if s.quotes == nil {
		return "", 0, false
	}
	var mark string
	for _, m := range s.quotes[s.src[i]] {
		if strings.HasPrefix(s.src[i:], m) {
			mark = m
			break
		}
	}
	if mark == "" {
		return "", 0, false
	}

	n := len(s.src)
	strs := &s.rs.Strings
	key := strs.QuoteID(mark)
	attrs := s.e.attr("st"+itoa(key), strs.Styles[key])
	escChar := strs.EscapeChar

	var b strings.Builder
	b.WriteString("<span" + attrs + ">" + escape(mark))
	start := i + len(mark)

	// closePos and simple hold the next closer and escape character at or
	// after start; they are searched again only once start passes them.
	closePos, simple := -1, n
	if s.perms.Escape && escChar != "" {
		simple = -1
	}
	for {
		if closePos < start {
			closePos = n
			if p := strings.Index(s.src[start:], mark); p >= 0 {
				closePos = start + p
			}
		}
		if simple < start {
			simple = n
			if p := strings.Index(s.src[start:], escChar); p >= 0 {
				simple = start + p
			}
		}
		pattern := n
		if s.perms.Escape && len(s.c.escapes) > 0 {
			s.escapes.refresh(start, n, func(k, from int) (int, int, bool) {
				sp, ok, err := s.text().find(s.c.escapes[k].re, from)
				if err != nil {
					log.Warn(log.CatEngine, "escape pattern match failed", "group", s.c.escapes[k].id, "error", err)
				}
				return sp.start, sp.end - sp.start, ok
			})
			pattern = s.escapes.pos
		}

		switch {
		case simple < pattern && simple < n && simple < closePos:
			b.WriteString(escape(s.src[start:simple]))
			b.WriteString("<span" + s.e.attr("es0", strs.EscapeStyles[0]) + ">" + escape(escChar))
			after := simple + len(escChar)
			switch {
			case after >= n:
				b.WriteString(spanCloseTag)
				start = n
			case s.src[after] == '\n':
				// the escape closes before the line break
				b.WriteString(spanCloseTag + "\n")
				start = after + 1
			default:
				_, size := utf8.DecodeRuneInString(s.src[after:])
				b.WriteString(escape(s.src[after:after+size]) + spanCloseTag)
				start = after + size
			}
		case pattern < n && pattern < closePos:
			k := s.escapes.key
			length := s.escapes.keys[k].length
			id := s.c.escapes[k].id
			b.WriteString(escape(s.src[start:pattern]))
			b.WriteString("<span" + s.e.attr("es"+itoa(id), strs.EscapeStyles[id]) + ">" +
				escape(s.src[pattern:pattern+length]) + spanCloseTag)
			start = pattern + length
		default:
			end := min(closePos+len(mark), n)
			b.WriteString(escape(s.src[start:end]) + spanCloseTag)
			return s.splitToken(b.String()), end, true
		}
	}
}

func (s *scanner) hardQuoted(i int) (string, int, bool) {
	hq := s.rs.Strings.HardQuote
	if !s.perms.Strings || hq == nil || hq.Open == "" || !strings.HasPrefix(s.src[i:], hq.Open) {
		return "", 0, false
	}
	strs := &s.rs.Strings
	n := len(s.src)
	hardChar := s.rs.HardChar()
	bodyStart := i + len(hq.Open)

	end := n
	for from := bodyStart; from < n; {
		p := strings.Index(s.src[from:], hq.Close)
		if p < 0 {
			break
		}
		closePos := from + p
		from = closePos + 1
		if s.perms.Escape && hardChar != "" && closePos != bodyStart &&
			strings.HasSuffix(s.src[:closePos], hardChar) && s.hardEscaped(closePos, hardChar) {
			continue
		}
		end = closePos + len(hq.Close)
		break
	}

	attrs := s.e.attr("st_h", strs.HardStyle)
	escAttrs := s.e.attr("es_h", strs.HardEscapeStyle)
	raw := s.src[i:end]
	var body string
	if s.perms.Escape && strs.EscapeChar != "" {
		body = s.renderHardEscapes(raw, len(hq.Open), escAttrs)
	} else {
		body = escape(raw)
	}
	tok := "<span" + attrs + ">" + body + spanCloseTag
	return s.splitToken(tok), end, true
}

// hardEscaped reports whether the closer at pos is escaped: a hard escape
// starts right before it and an odd number of hard characters precede it.
func (s *scanner) hardEscaped(pos int, hardChar string) bool {
	for _, he := range s.rs.Strings.HardEscapes {
		if he == "" || !strings.HasPrefix(s.src[pos-len(hardChar):], he) {
			continue
		}
		count := 0
		for k := pos; k >= len(hardChar) && s.src[k-len(hardChar):k] == hardChar; k -= len(hardChar) {
			count++
		}
		return count%2 == 1
	}
	return false
}

// renderHardEscapes escapes raw and wraps hard escapes and escape pairs.
func (s *scanner) renderHardEscapes(raw string, from int, escAttrs string) string {
	escChar := s.rs.Strings.EscapeChar
	var b strings.Builder
	start := 0
outer:
	for {
		p := strings.Index(raw[from:], escChar)
		if p < 0 {
			break
		}
		pos := from + p
		b.WriteString(escape(raw[start:pos]))
		for _, he := range s.rs.Strings.HardEscapes {
			if he != "" && strings.HasPrefix(raw[pos:], he) {
				b.WriteString("<span" + escAttrs + ">" + escape(he) + spanCloseTag)
				start = pos + len(he)
				from = start
				continue outer
			}
		}
		pairs := 0
		for strings.HasPrefix(raw[pos+pairs:], escChar+escChar) {
			pairs += 2 * len(escChar)
		}
		if pairs > 0 {
			b.WriteString("<span" + escAttrs + ">" + escape(raw[pos:pos+pairs]) + spanCloseTag)
			start = pos + pairs
		} else {
			b.WriteString(escape(escChar))
			start = pos + len(escChar)
		}
		from = start
	}
	b.WriteString(escape(raw[start:]))
	return b.String()
}

func (s *scanner) wrapComment(attrs, body string) string {
	if s.e.opts.splitLines {
		body = strings.ReplaceAll(body, "\n ", "\n&nbsp;")
	}
	return s.splitToken("<span" + attrs + ">" + body + spanCloseTag)
}

// splitToken makes every line of a multi-line token self-contained when
// line splitting is on.
func (s *scanner) splitToken(tok string) string {
	if !s.e.opts.splitLines {
		return tok
	}
	return reopenLines(tok)
}

// asciiLower lowers ASCII letters only, keeping byte offsets intact.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
