package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

func sampleRuleSet() *ruleset.RuleSet {
	return &ruleset.RuleSet{
		Name: "Sample",
		Keywords: []ruleset.KeywordGroup{
			{ID: 1, Words: []string{"if"}, Style: "color: blue;"},
			{ID: 2, Words: []string{"int"}},
		},
		Comments: ruleset.Comments{
			Single:     []ruleset.SingleComment{{ID: 1, Marker: "//"}},
			Styles:     map[int]string{1: "color: gray;"},
			MultiStyle: "font-style: italic;",
		},
		Strings: ruleset.Strings{
			Styles:       map[int]string{0: "color: red;"},
			EscapeStyles: map[int]string{0: "font-weight: bold;"},
			HardStyle:    "color: maroon;",
		},
		Numbers:  ruleset.Numbers{Styles: map[int]string{0: "color: green;"}},
		Symbols:  []ruleset.SymbolGroup{{ID: 0, Symbols: []string{"="}, Style: "color: olive;"}},
		Brackets: ruleset.Brackets{Style: "color: teal;"},
		Patterns: []ruleset.PatternGroup{
			{ID: 0, Search: `\$\w+`, Style: "color: purple;"},
			{ID: 1, Search: `@\w+`, Class: "annotation", Style: "color: navy;"},
		},
		ObjectSplitters: []ruleset.ObjectSplitter{{ID: 1, Token: ".", Style: "color: black;"}},
		Script:          ruleset.Script{Styles: map[int]string{0: "background: #eee;"}},
	}
}

func TestStylesheet_Full(t *testing.T) {
	css := Stylesheet(sampleRuleSet(), StylesheetOptions{Language: "sample", CodeStyle: "font: mono;"})

	for _, want := range []string{
		"/* Sample */\n",
		".sample .de1, .sample .de2 {font: mono;}\n",
		".sample .kw1 {color: blue;}\n",
		".sample .co1 {color: gray;}\n",
		".sample .coMULTI {font-style: italic;}\n",
		".sample .es0 {font-weight: bold;}\n",
		".sample .br0 {color: teal;}\n",
		".sample .sy0 {color: olive;}\n",
		".sample .st0 {color: red;}\n",
		".sample .st_h {color: maroon;}\n",
		".sample .nu0 {color: green;}\n",
		".sample .me1 {color: black;}\n",
		".sample .sc0 {background: #eee;}\n",
		".sample .re0 {color: purple;}\n",
		".sample .annotation {color: navy;}\n",
	} {
		require.Contains(t, css, want)
	}
	require.NotContains(t, css, ".kw2", "empty styles produce no rule")
}

func TestStylesheet_Economy(t *testing.T) {
	rs := sampleRuleSet()
	perms := ruleset.NewPermissions(rs)
	perms.Keywords[1] = false
	perms.Symbols = false

	css := Stylesheet(rs, StylesheetOptions{Economy: true, Permissions: perms, CodeStyle: "font: mono;", FancyStyle: "x"})

	require.NotContains(t, css, ".kw1")
	require.NotContains(t, css, ".sy0")
	require.NotContains(t, css, ".de1", "line styles only with line numbers")
	require.NotContains(t, css, ".li2")
	require.Contains(t, css, ".st0 {color: red;}")
}

func TestStylesheet_NumberBitGroups(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name: "N",
		Numbers: ruleset.Numbers{
			Flags:  ruleset.IntBasic | ruleset.HexPrefix,
			Styles: map[int]string{0: "color: a;", int(ruleset.HexPrefix): "color: b;"},
		},
	}
	css := Stylesheet(rs, StylesheetOptions{})
	require.Contains(t, css, ".nu0 {color: a;}")
	require.Contains(t, css, ".nu12 {color: b;}")
}
