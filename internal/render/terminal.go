package render

import (
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Terminal converts class-mode engine output into ANSI-colored text.
type Terminal struct {
	renderer    *lipgloss.Renderer
	theme       *Theme
	lineNumbers bool
	startLine   int
	tabWidth    int
	styles      map[ColorToken]lipgloss.Style
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithProfile forces a color profile instead of detecting one from the
// writer.
func WithProfile(p termenv.Profile) TerminalOption {
	return func(t *Terminal) { t.renderer.SetColorProfile(p) }
}

// WithGutter prefixes every line with its number, counting from start.
func WithGutter(start int) TerminalOption {
	return func(t *Terminal) {
		t.lineNumbers = true
		t.startLine = start
	}
}

// WithTabWidth sets the tab stop distance.
func WithTabWidth(n int) TerminalOption {
	return func(t *Terminal) {
		if n > 0 {
			t.tabWidth = n
		}
	}
}

// NewTerminal returns a renderer for w. A nil theme uses the default palette.
func NewTerminal(w io.Writer, theme *Theme, opts ...TerminalOption) *Terminal {
	if theme == nil {
		theme = &Theme{colors: DefaultPreset.Colors}
	}
	t := &Terminal{
		renderer:  lipgloss.NewRenderer(w),
		theme:     theme,
		startLine: 1,
		tabWidth:  DefaultTabWidth,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.styles = make(map[ColorToken]lipgloss.Style)
	for _, token := range AllTokens() {
		color := theme.Color(token)
		if color == "" {
			continue
		}
		s := t.renderer.NewStyle().Foreground(lipgloss.Color(color))
		switch token {
		case TokenKeyword:
			s = s.Bold(true)
		case TokenComment:
			s = s.Italic(true)
		case TokenLink:
			s = s.Underline(true)
		}
		t.styles[token] = s
	}
	return t
}

// Render walks the markup, styling text by its innermost colored element.
// Unknown tags are dropped and entities decoded.
func (t *Terminal) Render(parsed string) string {
	var (
		b     strings.Builder
		stack []ColorToken
		col   int
		line  = t.startLine
		width = len(strconv.Itoa(t.startLine + strings.Count(parsed, "\n")))
	)
	gutter := func() {
		if !t.lineNumbers {
			return
		}
		num := strconv.Itoa(line)
		num = strings.Repeat(" ", width-len(num)) + num
		if s, ok := t.styles[TokenGutter]; ok {
			num = s.Render(num)
		}
		b.WriteString(num + " ")
	}
	current := func() (lipgloss.Style, bool) {
		for i := len(stack) - 1; i >= 0; i-- {
			if s, ok := t.styles[stack[i]]; ok {
				return s, true
			}
		}
		return lipgloss.Style{}, false
	}
	emit := func(text string) {
		for i, part := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteByte('\n')
				line++
				col = 0
				gutter()
			}
			if part == "" {
				continue
			}
			part, col = expandTabsPlain(part, col, t.tabWidth)
			if s, ok := current(); ok {
				part = s.Render(part)
			}
			b.WriteString(part)
		}
	}

	gutter()
	for len(parsed) > 0 {
		lt := strings.IndexByte(parsed, '<')
		if lt < 0 {
			emit(html.UnescapeString(parsed))
			break
		}
		if lt > 0 {
			emit(html.UnescapeString(parsed[:lt]))
		}
		gt := strings.IndexByte(parsed[lt:], '>')
		if gt < 0 {
			emit(html.UnescapeString(parsed[lt:]))
			break
		}
		tag := parsed[lt : lt+gt+1]
		parsed = parsed[lt+gt+1:]
		switch {
		case strings.HasPrefix(tag, "</"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case strings.HasPrefix(tag, "<a"):
			stack = append(stack, TokenLink)
		case strings.HasPrefix(tag, "<span"):
			token, _ := tokenForClass(classOf(tag))
			stack = append(stack, token)
		case !strings.HasSuffix(tag, "/>"):
			stack = append(stack, "")
		}
	}
	return b.String()
}

// classOf extracts the first class of a start tag.
func classOf(tag string) string {
	i := strings.Index(tag, `class="`)
	if i < 0 {
		return ""
	}
	rest := tag[i+len(`class="`):]
	end := strings.IndexAny(rest, `" `)
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// expandTabsPlain expands tabs in unmarked text starting at column col and
// returns the new column.
func expandTabsPlain(s string, col, width int) (string, int) {
	if !strings.Contains(s, "\t") {
		return s, col + runewidth.StringWidth(s)
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String(), col
}
