package highlight

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

func TestSplitBlocks_Never(t *testing.T) {
	segs := splitBlocks("a<?b?>c", []delimiter{{group: 0, open: "<?", close: "?>"}}, ruleset.Never)
	require.Equal(t, []segment{{code: true, group: -1, text: "a<?b?>c"}}, segs)
}

func TestSplitBlocks_Literal(t *testing.T) {
	delims := []delimiter{{group: 0, open: "<?", close: "?>"}}
	segs := splitBlocks("html<?code?>html2", delims, ruleset.Always)
	require.Equal(t, []segment{
		{group: -1, text: "html"},
		{code: true, group: 0, text: "<?code?>"},
		{group: -1, text: "html2"},
	}, segs)
}

func TestSplitBlocks_UnclosedRunsToEnd(t *testing.T) {
	delims := []delimiter{{group: 0, open: "<?", close: "?>"}}
	segs := splitBlocks("x<?code", delims, ruleset.Always)
	require.Equal(t, []segment{
		{group: -1, text: "x"},
		{code: true, group: 0, text: "<?code"},
	}, segs)
}

func TestSplitBlocks_AdjacentBlocksMerge(t *testing.T) {
	delims := []delimiter{{group: 0, open: "<?", close: "?>"}}
	segs := splitBlocks("<?a?><?b?>c", delims, ruleset.Always)
	require.Equal(t, []segment{
		{code: true, group: 0, text: "<?a?><?b?>"},
		{group: -1, text: "c"},
	}, segs)
}

func TestSplitBlocks_FirstDeclaredWinsTie(t *testing.T) {
	delims := []delimiter{
		{group: 0, open: "<?php", close: "?>"},
		{group: 1, open: "<?", close: "?>"},
	}
	segs := splitBlocks("<?php x ?>", delims, ruleset.Always)
	require.Equal(t, []segment{{code: true, group: 0, text: "<?php x ?>"}}, segs)
}

func TestSplitBlocks_Pattern(t *testing.T) {
	re := regexp2.MustCompile(`(?<start><script>).*?(?<end></script>)`, regexp2.Singleline)
	delims := []delimiter{{group: 2, re: re}}
	segs := splitBlocks("a<script>x</script>b", delims, ruleset.Always)
	require.Equal(t, []segment{
		{group: -1, text: "a"},
		{code: true, group: 2, text: "<script>x</script>"},
		{group: -1, text: "b"},
	}, segs)
}

func TestSplitBlocks_MaybeWithoutBlocks(t *testing.T) {
	delims := []delimiter{{group: 0, open: "<?", close: "?>"}}
	require.Equal(t, []segment{{code: true, group: -1, text: "plain"}}, splitBlocks("plain", delims, ruleset.Maybe))
	require.Equal(t, []segment{{group: -1, text: "plain"}}, splitBlocks("plain", delims, ruleset.Always))
}

func TestSplitBlocks_NoDelimiters(t *testing.T) {
	require.Equal(t, []segment{{group: -1, text: "plain"}}, splitBlocks("plain", nil, ruleset.Always))
	require.Equal(t, []segment{{code: true, group: -1, text: "plain"}}, splitBlocks("plain", nil, ruleset.Maybe))
	require.Equal(t, []segment{{code: true, group: -1, text: "plain"}}, splitBlocks("plain", nil, ruleset.Never))
	require.Empty(t, splitBlocks("", nil, ruleset.Always))
}

func TestParse_AlwaysStrictWithoutDelimitersIsPlain(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name:     "html",
		Keywords: []ruleset.KeywordGroup{{ID: 1, Words: []string{"echo"}}},
		Script:   ruleset.Script{Strict: ruleset.Always},
	}
	require.Equal(t, "echo &lt;b&gt;", New(rs).Parse("echo <b>"))

	rs.Script.Strict = ruleset.Maybe
	require.Equal(t, `<span class="kw1">echo</span> &lt;b&gt;`, New(rs).Parse("echo <b>"))
}
