package highlight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeRestore(t *testing.T) {
	esc := escape(`a<b>&"c";|`)
	require.Equal(t, `a&lt;b&gt;&amp;&quot;c&quot;<SEMI><PIPE>`, esc)
	require.Equal(t, `a&lt;b&gt;&amp;&quot;c&quot;;|`, restore(esc))
	require.Equal(t, `a<b>&"c";|`, unescape(esc))
}

func TestReopenLines(t *testing.T) {
	in := "<span class=\"a\">x<span class=\"b\">y\nz</span></span>"
	want := "<span class=\"a\">x<span class=\"b\">y</span></span>\n<span class=\"a\"><span class=\"b\">z</span></span>"
	require.Equal(t, want, reopenLines(in))

	link := "<a href=\"u\"><span class=\"k\">p\nq</span></a>"
	require.Equal(t, "<a href=\"u\"><span class=\"k\">p</span></a>\n<a href=\"u\"><span class=\"k\">q</span></a>", reopenLines(link))
}

func TestSplitPlaceholder(t *testing.T) {
	require.Equal(t, "a|>\n<|/1/>b", splitPlaceholder(keywordOpen(1), "a\nb"))
}

func TestStripMarkup(t *testing.T) {
	require.Equal(t, "x.y<z", stripMarkup("<|/1/>x<DOT>y|>&lt;z"))
	require.Equal(t, "ab", stripMarkup(`<|UR1|"u<DOT>v"><|/2/>a|></a>b`))
}

func TestDropLeadingSpace(t *testing.T) {
	require.Equal(t, "x", dropLeadingSpace(" x"))
	require.Equal(t, `<span class="re0">x`, dropLeadingSpace(`<span class="re0"> x`))
	require.Equal(t, "x", dropLeadingSpace("x"))
}
