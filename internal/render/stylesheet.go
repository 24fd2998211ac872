package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

// StylesheetOptions selects which rules a stylesheet carries.
type StylesheetOptions struct {
	// Language scopes every selector to the container class.
	Language string
	// Economy omits rules for disabled categories and unused line styles.
	Economy     bool
	LineNumbers LineNumbers
	// Permissions defaults to every category the rule set declares.
	Permissions *ruleset.Permissions

	OverallStyle string
	CodeStyle    string
	LineStyle    string
	FancyStyle   string
	LinkStyle    string
}

// Stylesheet renders the CSS matching the classes the engine emits for rs.
// Empty styles produce no rule.
func Stylesheet(rs *ruleset.RuleSet, opts StylesheetOptions) string {
	perms := opts.Permissions
	if perms == nil {
		perms = ruleset.NewPermissions(rs)
	}
	sel := ""
	if opts.Language != "" {
		sel = "." + cssName(opts.Language) + " "
	}
	full := !opts.Economy
	numbered := opts.LineNumbers != LinesNone

	var b strings.Builder
	fmt.Fprintf(&b, "/* %s */\n", rs.Name)
	rule := func(selector, style string) {
		if style != "" {
			fmt.Fprintf(&b, "%s {%s}\n", selector, style)
		}
	}

	if full || numbered {
		rule(sel+".de1, "+sel+".de2", opts.CodeStyle)
	}
	rule(strings.TrimSpace(sel), opts.OverallStyle)
	rule(sel+"a:link", opts.LinkStyle)
	if full || numbered {
		rule(sel+"li, "+sel+".li1", opts.LineStyle)
	}
	if full || opts.LineNumbers == LinesFancy {
		rule(sel+".li2", opts.FancyStyle)
	}

	for _, g := range rs.Keywords {
		if full || perms.Keyword(g.ID) {
			rule(fmt.Sprintf("%s.kw%d", sel, g.ID), g.Style)
		}
	}
	for _, id := range sortedKeys(rs.Comments.Styles) {
		if full || perms.Comment(id) {
			rule(fmt.Sprintf("%s.co%d", sel, id), rs.Comments.Styles[id])
		}
	}
	if full || perms.Multi {
		rule(sel+".coMULTI", rs.Comments.MultiStyle)
	}
	if full || perms.Escape {
		for _, id := range sortedKeys(rs.Strings.EscapeStyles) {
			rule(fmt.Sprintf("%s.es%d", sel, id), rs.Strings.EscapeStyles[id])
		}
		rule(sel+".es_h", rs.Strings.HardEscapeStyle)
	}
	if full || perms.Brackets {
		rule(sel+".br0", rs.Brackets.Style)
	}
	if full || perms.Symbols {
		for _, g := range rs.Symbols {
			rule(fmt.Sprintf("%s.sy%d", sel, g.ID), g.Style)
		}
	}
	if full || perms.Strings {
		for _, id := range sortedKeys(rs.Strings.Styles) {
			rule(fmt.Sprintf("%s.st%d", sel, id), rs.Strings.Styles[id])
		}
		rule(sel+".st_h", rs.Strings.HardStyle)
	}
	if full || perms.Numbers {
		for _, g := range rs.Numbers.StyleGroups() {
			rule(fmt.Sprintf("%s.nu%d", sel, g.ID), rs.Numbers.Style(g.ID))
		}
	}
	if full || perms.Methods {
		for _, sp := range rs.ObjectSplitters {
			rule(fmt.Sprintf("%s.me%d", sel, sp.ID), sp.Style)
		}
	}
	for _, id := range sortedKeys(rs.Script.Styles) {
		rule(fmt.Sprintf("%s.sc%d", sel, id), rs.Script.Styles[id])
	}
	for _, p := range rs.Patterns {
		if !full && !perms.Pattern(p.ID) {
			continue
		}
		class := p.Class
		if class == "" {
			class = fmt.Sprintf("re%d", p.ID)
		}
		rule(sel+"."+class, p.Style)
	}
	return b.String()
}

func sortedKeys(m map[int]string) []int {
	return slices.Sorted(maps.Keys(m))
}
