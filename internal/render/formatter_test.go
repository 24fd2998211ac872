package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	for in, want := range map[string]Header{"": HeaderPre, "PRE": HeaderPre, "div": HeaderDiv, "none": HeaderNone} {
		got, err := ParseHeader(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseHeader("table")
	require.Error(t, err)
}

func TestParseLineNumbers(t *testing.T) {
	for in, want := range map[string]LineNumbers{"": LinesNone, "normal": LinesNormal, "Fancy": LinesFancy} {
		got, err := ParseLineNumbers(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLineNumbers("roman")
	require.Error(t, err)
}

func TestFormat_Headers(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "pre",
			opts: Options{Language: "c", Classes: true},
			want: `<pre class="c">a` + "\n" + `b</pre>`,
		},
		{
			name: "div",
			opts: Options{Language: "c", Header: HeaderDiv, Classes: true},
			want: `<div class="c">a<br />` + "\n" + `b</div>`,
		},
		{
			name: "none",
			opts: Options{Header: HeaderNone, Classes: true},
			want: "a<br />\nb",
		},
		{
			name: "numeric language gets prefixed",
			opts: Options{Language: "4cs", Classes: true},
			want: `<pre class="_4cs">a` + "\n" + `b</pre>`,
		},
		{
			name: "overall style in style mode",
			opts: Options{Language: "c", OverallStyle: "color: red;"},
			want: `<pre class="c" style="color: red;">a` + "\n" + `b</pre>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewFormatter(tt.opts).Format("a\nb"))
		})
	}
}

func TestFormat_LineNumbers(t *testing.T) {
	f := NewFormatter(Options{Language: "c", Classes: true, LineNumbers: LinesNormal})
	got := f.Format("x\n\ny")
	require.Equal(t,
		`<pre class="c"><ol>`+
			`<li class="li1"><div class="de1">x</div></li>`+
			`<li class="li1"><div class="de1">&nbsp;</div></li>`+
			`<li class="li1"><div class="de1">y</div></li>`+
			`</ol></pre>`, got)
}

func TestFormat_FancyLineNumbers(t *testing.T) {
	f := NewFormatter(Options{Header: HeaderDiv, Classes: true, LineNumbers: LinesFancy, FancyEvery: 2, StartLine: 10})
	got := f.Format("a\nb\nc")
	require.Equal(t,
		`<div><ol start="10">`+
			`<li class="li1"><div class="de1">a</div></li>`+"\n"+
			`<li class="li2"><div class="de2">b</div></li>`+"\n"+
			`<li class="li1"><div class="de1">c</div></li>`+"\n"+
			`</ol></div>`, got)
}

func TestFormat_StyleModeLines(t *testing.T) {
	f := NewFormatter(Options{LineNumbers: LinesFancy, FancyEvery: 1, LineStyle: "a", FancyStyle: "b", CodeStyle: "c"})
	got := f.Format("x")
	require.Contains(t, got, `<li style="b"><div style="c">x</div></li>`)
}

func TestFormat_PurgesEmptySpans(t *testing.T) {
	f := NewFormatter(Options{Header: HeaderNone})
	require.Equal(t, "a  b", f.Format(`a<span class="kw1"> </span> b`))
}

func TestFormat_DivWhitespace(t *testing.T) {
	f := NewFormatter(Options{Header: HeaderNone, LineNumbers: LinesNormal, Classes: true})
	got := f.Format("  x  y")
	require.Contains(t, got, `<div class="de1">&nbsp; x &nbsp;y</div>`)
}

func TestExpandTabs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tabs", "abc", "abc"},
		{"leading", "\tx", "    x"},
		{"mid", "ab\tx", "ab  x"},
		{"markup ignored", `<span class="kw1">ab</span>` + "\tx", `<span class="kw1">ab</span>  x`},
		{"entity is one cell", "&lt;\tx", "&lt;   x"},
		{"wide rune", "世\tx", "世  x"},
		{"per line", "a\tb\n\tc", "a   b\n    c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, expandTabs(tt.in, 4))
		})
	}
}

func TestFormat_ExpandsTabs(t *testing.T) {
	f := NewFormatter(Options{Header: HeaderNone, TabWidth: 2})
	require.False(t, strings.Contains(f.Format("\tx"), "\t"))
}
