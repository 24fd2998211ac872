// Package render turns engine output into a finished document: an HTML
// fragment with an optional container and line numbers, a stylesheet for
// class mode, or ANSI text for a terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/gensynth/internal/log"
)

// Header selects the container wrapped around the highlighted code.
type Header int

const (
	HeaderPre Header = iota
	HeaderDiv
	HeaderNone
)

// ParseHeader maps a configuration value to a Header.
func ParseHeader(s string) (Header, error) {
	switch strings.ToLower(s) {
	case "", "pre":
		return HeaderPre, nil
	case "div":
		return HeaderDiv, nil
	case "none":
		return HeaderNone, nil
	}
	return HeaderPre, fmt.Errorf("header %q: want pre, div or none", s)
}

// LineNumbers selects how lines are numbered.
type LineNumbers int

const (
	LinesNone LineNumbers = iota
	LinesNormal
	// LinesFancy styles every FancyEvery-th line differently.
	LinesFancy
)

// ParseLineNumbers maps a configuration value to a LineNumbers mode.
func ParseLineNumbers(s string) (LineNumbers, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return LinesNone, nil
	case "normal":
		return LinesNormal, nil
	case "fancy":
		return LinesFancy, nil
	}
	return LinesNone, fmt.Errorf("line numbers %q: want none, normal or fancy", s)
}

const (
	DefaultFancyEvery = 5
	DefaultTabWidth   = 8
)

// Options configures a Formatter.
type Options struct {
	// Language is emitted as the container class.
	Language    string
	Header      Header
	LineNumbers LineNumbers
	FancyEvery  int
	StartLine   int
	Classes     bool
	TabWidth    int

	// Inline styles, used when Classes is false.
	OverallStyle string
	CodeStyle    string
	LineStyle    string
	FancyStyle   string
}

func (o Options) withDefaults() Options {
	if o.FancyEvery <= 0 {
		o.FancyEvery = DefaultFancyEvery
	}
	if o.StartLine == 0 {
		o.StartLine = 1
	}
	if o.TabWidth <= 0 {
		o.TabWidth = DefaultTabWidth
	}
	return o
}

// Formatter wraps engine output in a container. Line numbering expects the
// engine to run with line splitting on so every line is self-contained.
type Formatter struct {
	opts Options
}

// NewFormatter returns a Formatter with zero options replaced by defaults.
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (f *Formatter) Options() Options { return f.opts }

var emptySpan = regexp2.MustCompile(`<span[^>]+>(\s*)</span>`, regexp2.None)

// Format finishes parsed markup.
func (f *Formatter) Format(parsed string) string {
	o := f.opts
	parsed = expandTabs(parsed, o.TabWidth)
	if o.Header != HeaderPre {
		parsed = f.indent(parsed)
	}
	if purged, err := emptySpan.Replace(parsed, "$1", -1, -1); err == nil {
		parsed = purged
	} else {
		log.Warn(log.CatRender, "empty span purge failed", "error", err)
	}

	lines := strings.Split(parsed, "\n")
	var b strings.Builder
	b.Grow(len(parsed) + len(lines)*32)
	b.WriteString(f.header())

	if o.LineNumbers != LinesNone {
		sep := ""
		if o.Header != HeaderPre {
			sep = "\n"
		}
		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				line = "&nbsp;"
			}
			li, de := f.lineAttrs(i)
			b.WriteString("<li" + li + "><div" + de + ">" + line + "</div></li>" + sep)
		}
	} else {
		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				line = "&nbsp;"
			}
			b.WriteString(line)
			if i+1 < len(lines) {
				b.WriteByte('\n')
			}
		}
	}

	b.WriteString(f.footer())
	return b.String()
}

func (f *Formatter) fancy(i int) bool {
	return f.opts.LineNumbers == LinesFancy && i%f.opts.FancyEvery == f.opts.FancyEvery-1
}

func (f *Formatter) lineAttrs(i int) (li, de string) {
	o := f.opts
	if o.Classes {
		if f.fancy(i) {
			return ` class="li2"`, ` class="de2"`
		}
		return ` class="li1"`, ` class="de1"`
	}
	style := o.LineStyle
	if f.fancy(i) {
		style = o.FancyStyle
	}
	return styleAttr(style), styleAttr(o.CodeStyle)
}

func styleAttr(style string) string {
	if style == "" {
		return ""
	}
	return ` style="` + style + `"`
}

func (f *Formatter) header() string {
	o := f.opts
	attrs := ""
	if o.Language != "" {
		attrs = ` class="` + cssName(o.Language) + `"`
	}
	if !o.Classes {
		attrs += styleAttr(o.OverallStyle)
	}
	ol := "<ol"
	if o.StartLine != 1 {
		ol += ` start="` + strconv.Itoa(o.StartLine) + `"`
	}
	ol += ">"

	numbered := o.LineNumbers != LinesNone
	switch o.Header {
	case HeaderNone:
		if numbered {
			return "<ol" + attrs + ol[3:]
		}
		return ""
	case HeaderDiv:
		if numbered {
			return "<div" + attrs + ">" + ol
		}
		return "<div" + attrs + ">"
	default:
		if numbered {
			return "<pre" + attrs + ">" + ol
		}
		return "<pre" + attrs + ">"
	}
}

func (f *Formatter) footer() string {
	numbered := f.opts.LineNumbers != LinesNone
	closeOl := ""
	if numbered {
		closeOl = "</ol>"
	}
	switch f.opts.Header {
	case HeaderNone:
		return closeOl
	case HeaderDiv:
		return closeOl + "</div>"
	default:
		return closeOl + "</pre>"
	}
}

// indent makes whitespace survive outside <pre>: a leading space and every
// second space of a run become &nbsp;, and unnumbered lines get <br />.
func (f *Formatter) indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, " ") {
			line = "&nbsp;" + line[1:]
		}
		lines[i] = strings.ReplaceAll(line, "  ", " &nbsp;")
	}
	if f.opts.LineNumbers == LinesNone {
		return strings.Join(lines, "<br />\n")
	}
	return strings.Join(lines, "\n")
}

// expandTabs replaces tabs with spaces up to the next tab stop. Markup does
// not advance the column; an entity counts as one cell and other runes by
// their display width.
func expandTabs(s string, width int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	col := 0
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '<':
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				end = len(s) - i - 1
			}
			b.WriteString(s[i : i+end+1])
			i += end + 1
		case c == '&':
			end := strings.IndexByte(s[i:], ';')
			if end < 0 || end > 10 {
				end = 0
			}
			b.WriteString(s[i : i+end+1])
			i += end + 1
			col++
		case c == '\t':
			n := width - col%width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			i++
		case c == '\n':
			b.WriteByte(c)
			col = 0
			i++
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
			col += runewidth.RuneWidth(r)
			i += size
		}
	}
	return b.String()
}

// cssName makes name usable as a class: a leading digit gets an underscore.
func cssName(name string) string {
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		return "_" + name
	}
	return name
}
