package highlight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/optimizer"
	"github.com/zjrosen/gensynth/internal/ruleset"
)

func TestParse_MemberAccess(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name:   "php",
		OOLang: true,
		ObjectSplitters: []ruleset.ObjectSplitter{
			{ID: 1, Token: "->"},
			{ID: 2, Token: "."},
		},
	}
	e := New(rs)
	require.Equal(t, `obj-&gt;<span class="me1">name</span>.<span class="me2">len</span>`, e.Parse("obj->name.len"))
	require.Equal(t, `obj-&gt; <span class="me1">name</span>`, e.Parse("obj-> name"))

	require.NoError(t, e.Permissions().Set(ruleset.PermMethods, false))
	require.Equal(t, "obj-&gt;name.len", e.Parse("obj->name.len"))

	rs.OOLang = false
	require.Equal(t, "obj-&gt;name.len", New(rs).Parse("obj->name.len"))
}

func TestParse_SymbolRunSplitsByGroup(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name: "c",
		Symbols: []ruleset.SymbolGroup{
			{ID: 1, Symbols: []string{"+"}},
			{ID: 2, Symbols: []string{"="}},
		},
	}
	e := New(rs)
	require.Equal(t, "a += b", e.Parse("a += b"))

	require.NoError(t, e.Permissions().Set(ruleset.PermSymbols, true))
	require.Equal(t,
		`a <span class="sy1">+</span><span class="sy2">=</span> b <span class="sy2">==</span> c`,
		e.Parse("a += b == c"))
}

func TestParse_NumberStyleGroups(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name: "asm",
		Numbers: ruleset.Numbers{
			Flags:  ruleset.IntBasic | ruleset.HexPrefix,
			Styles: map[int]string{int(ruleset.HexPrefix): "color: red"},
		},
	}
	require.Equal(t,
		`x = <span class="nu12">0x1F</span> + <span class="nu0">7</span>`,
		New(rs).Parse("x = 0x1F + 7"))
	require.Equal(t,
		`x = <span style="color: red">0x1F</span> + <span style="">7</span>`,
		New(rs, WithClasses(false)).Parse("x = 0x1F + 7"))

	require.Equal(t, `a5 <span class="nu0">5</span>`, New(rs).Parse("a5 5"))
}

func TestParse_AddedKeywordUsesGroupControl(t *testing.T) {
	rs := cLike()
	on := true
	rs.Control.KeywordGroups = map[int]ruleset.KeywordControl{1: {SpaceAsWhitespace: &on}}
	e := New(rs)
	require.Equal(t, "else\tif", e.Parse("else\tif"))

	require.NoError(t, rs.AddKeyword(1, "else if"))
	require.Equal(t, "<span class=\"kw1\">else\tif</span>", e.Parse("else\tif"))
}

func TestParse_AddedKeywordStartsFragmentWhenFull(t *testing.T) {
	rs := cLike()
	e := New(rs, WithOptimizer(optimizer.Options{MaxLength: 8}))
	require.Equal(t, `<span class="kw1">return</span>`, e.Parse("return"))
	before := len(e.cache.keywords)

	require.NoError(t, rs.AddKeyword(1, "float"))
	require.Equal(t,
		`<span class="kw1">int</span> <span class="kw1">float</span> <span class="kw1">return</span>`,
		e.Parse("int float return"))
	require.Len(t, e.cache.keywords, before+1)
	require.Empty(t, e.PatternErrors())
}
