package highlight

import (
	"strconv"
	"strings"
)

// Reserved punctuation is parked behind private sentinels while the
// classifier runs, so ; and | in the source never look like markup.
const (
	semiSentinel = "<SEMI>"
	pipeSentinel = "<PIPE>"
	dotSentinel  = "<DOT>"
)

// Placeholder markup. Openers start with "<|" and close with "|>"; attribute
// resolution happens once, after every stage ran. Keywords use <|/K/>,
// numbers <|/NUM!G/>, methods <|/ME!K/>, symbols <|/SY!G/>, patterns
// <|!PATK!> and keyword links <|UR1|"url">.
const (
	phClose       = "|>"
	phKeyword     = "<|/"
	phNumber      = "NUM!"
	phMethod      = "ME!"
	phSymbol      = "SY!"
	phPattern     = "<|!PAT"
	phLink        = "<|UR1|"
	phLinkClose   = "</a>"
	spanOpenTag   = "<span"
	spanCloseTag  = "</span>"
	anchorOpenTag = "<a "
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
	";", semiSentinel,
	"|", pipeSentinel,
)

var restorer = strings.NewReplacer(semiSentinel, ";", pipeSentinel, "|")

var unescaper = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	semiSentinel, ";",
	pipeSentinel, "|",
	dotSentinel, ".",
)

// escape HTML-escapes s and parks ; and | behind sentinels.
func escape(s string) string {
	return escaper.Replace(s)
}

// restore turns the sentinels back into literal characters.
func restore(s string) string {
	return restorer.Replace(s)
}

func unescape(s string) string {
	return unescaper.Replace(s)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func keywordOpen(group int) string {
	return phKeyword + strconv.Itoa(group) + "/>"
}

func numberOpen(group int) string {
	return phKeyword + phNumber + strconv.Itoa(group) + "/>"
}

func methodOpen(key int) string {
	return phKeyword + phMethod + strconv.Itoa(key) + "/>"
}

func symbolOpen(group int) string {
	return phKeyword + phSymbol + strconv.Itoa(group) + "/>"
}

func patternOpen(group int) string {
	return phPattern + strconv.Itoa(group) + "!>"
}

// splitPlaceholder closes and reopens a placeholder around each line break
// inside its content.
func splitPlaceholder(open, content string) string {
	return strings.ReplaceAll(content, "\n", phClose+"\n"+open)
}

// reopenLines closes every open element before each line break and reopens
// it after, so each line of s is balanced on its own.
func reopenLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	var open []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\n':
			for j := len(open) - 1; j >= 0; j-- {
				b.WriteString(closerFor(open[j]))
			}
			b.WriteByte('\n')
			for _, tag := range open {
				b.WriteString(tag)
			}
			i++
		case c != '<':
			b.WriteByte(c)
			i++
		case strings.HasPrefix(s[i:], spanOpenTag), strings.HasPrefix(s[i:], anchorOpenTag):
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			tag := s[i : i+end+1]
			open = append(open, tag)
			b.WriteString(tag)
			i += end + 1
		case strings.HasPrefix(s[i:], spanCloseTag):
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			b.WriteString(spanCloseTag)
			i += len(spanCloseTag)
		case strings.HasPrefix(s[i:], phLinkClose):
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			b.WriteString(phLinkClose)
			i += len(phLinkClose)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func closerFor(tag string) string {
	if strings.HasPrefix(tag, anchorOpenTag) {
		return phLinkClose
	}
	return spanCloseTag
}

// stripMarkup removes placeholder and element markup and returns the
// unescaped text.
func stripMarkup(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], dotSentinel):
			b.WriteByte('.')
			i += len(dotSentinel)
		case strings.HasPrefix(s[i:], semiSentinel), strings.HasPrefix(s[i:], pipeSentinel):
			b.WriteString(s[i : i+len(semiSentinel)])
			i += len(semiSentinel)
		case strings.HasPrefix(s[i:], phClose):
			i += len(phClose)
		case strings.HasPrefix(s[i:], "<|"), strings.HasPrefix(s[i:], phLinkClose):
			end := openerEnd(s, i)
			if end < 0 {
				return unescape(b.String() + s[i:])
			}
			i = end
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return unescape(b.String())
}

// openerEnd returns the index just past the placeholder opener at i. Link
// URLs may carry <DOT> sentinels before the final '>'.
func openerEnd(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != '>' {
			continue
		}
		if hasSentinelSuffix(s[:j+1]) {
			continue
		}
		return j + 1
	}
	return -1
}

func hasSentinelSuffix(s string) bool {
	return strings.HasSuffix(s, dotSentinel) ||
		strings.HasSuffix(s, semiSentinel) ||
		strings.HasSuffix(s, pipeSentinel)
}
