package ruleset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sample() *RuleSet {
	return &RuleSet{
		Name: "sample",
		Keywords: []KeywordGroup{
			{ID: 1, Words: []string{"if", "else"}},
			{ID: 2, Words: []string{"int"}, CaseSensitive: true},
		},
		Strings: Strings{Quotes: []Quote{{ID: 0, Mark: `"`}, {ID: 1, Mark: "'"}}, EscapeChar: `\`},
	}
}

func TestAddKeywordGroup(t *testing.T) {
	rs := sample()
	gen := rs.Generation()

	require.NoError(t, rs.AddKeywordGroup(KeywordGroup{ID: 3, Words: []string{"a", "b", "a", ""}}))
	g, ok := rs.KeywordGroup(3)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, g.Words)
	require.Greater(t, rs.Generation(), gen)

	// replacing keeps the group count
	require.NoError(t, rs.AddKeywordGroup(KeywordGroup{ID: 3, Words: []string{"c"}}))
	require.Len(t, rs.Keywords, 3)
	g, _ = rs.KeywordGroup(3)
	require.Equal(t, []string{"c"}, g.Words)
}

func TestAddKeywordGroup_RejectsEmpty(t *testing.T) {
	rs := sample()
	gen := rs.Generation()

	err := rs.AddKeywordGroup(KeywordGroup{ID: 9, Words: []string{"", ""}})
	require.ErrorIs(t, err, ErrEmptyKeywordGroup)
	_, ok := rs.KeywordGroup(9)
	require.False(t, ok)
	require.Equal(t, gen, rs.Generation())
}

func TestAddKeywordGroup_RejectsWordOfAnotherGroup(t *testing.T) {
	rs := sample()
	gen := rs.Generation()

	err := rs.AddKeywordGroup(KeywordGroup{ID: 3, Words: []string{"for", "else"}})
	require.ErrorIs(t, err, ErrDuplicateKeyword)
	require.ErrorContains(t, err, `"else" in group 1`)
	_, ok := rs.KeywordGroup(3)
	require.False(t, ok)
	require.Equal(t, gen, rs.Generation())

	// a replacement may keep its own words
	require.NoError(t, rs.AddKeywordGroup(KeywordGroup{ID: 1, Words: []string{"if", "else", "elif"}}))
	g, _ := rs.KeywordGroup(1)
	require.Equal(t, []string{"if", "else", "elif"}, g.Words)
}

func TestAddKeyword_RecordsPatch(t *testing.T) {
	rs := sample()
	gen := rs.Generation()

	require.NoError(t, rs.AddKeyword(1, "while"))
	require.NoError(t, rs.AddKeyword(1, "while"))
	require.Equal(t, gen, rs.Generation())
	require.Equal(t, []KeywordPatch{{Group: 1, Word: "while"}}, rs.Patches(0))
	require.Nil(t, rs.Patches(1))

	require.ErrorIs(t, rs.AddKeyword(7, "x"), ErrUnknownGroup)
	require.ErrorIs(t, rs.AddKeyword(2, "if"), ErrDuplicateKeyword)
}

func TestStructuralChangeDropsPatches(t *testing.T) {
	rs := sample()
	require.NoError(t, rs.AddKeyword(1, "while"))
	require.True(t, rs.RemoveKeyword(1, "else"))
	require.Empty(t, rs.Patches(0))
}

func TestRemoveKeyword_LastWordRemovesGroup(t *testing.T) {
	rs := sample()
	require.True(t, rs.RemoveKeyword(2, "int"))
	_, ok := rs.KeywordGroup(2)
	require.False(t, ok)

	require.False(t, rs.RemoveKeyword(2, "int"))
	require.False(t, rs.RemoveKeyword(1, "missing"))
	require.False(t, rs.RemoveKeywordGroup(42))
}

func TestSetCaseSensitive(t *testing.T) {
	rs := sample()
	gen := rs.Generation()

	require.NoError(t, rs.SetCaseSensitive(2, true))
	require.Equal(t, gen, rs.Generation())
	require.NoError(t, rs.SetCaseSensitive(2, false))
	require.Greater(t, rs.Generation(), gen)
	require.ErrorIs(t, rs.SetCaseSensitive(5, true), ErrUnknownGroup)
}

func TestKeywordGroup_Has(t *testing.T) {
	rs := sample()
	g1, _ := rs.KeywordGroup(1)
	g2, _ := rs.KeywordGroup(2)
	require.True(t, g1.Has("IF"))
	require.False(t, g2.Has("INT"))
	require.True(t, g2.Has("int"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, sample().Validate())

	rs := sample()
	rs.Name = ""
	rs.Keywords = append(rs.Keywords, KeywordGroup{ID: 1, Words: []string{"dup"}})
	rs.Comments.Multi = []MultiComment{{Open: "/*"}}
	rs.Script.Delimiters = []ScriptDelimiter{{ID: 0, Open: "<?"}, {ID: 1, Pattern: `(<%)(%>)`}}

	err := rs.Validate()
	require.ErrorIs(t, err, ErrMalformed)
	require.Contains(t, err.Error(), "name is required")
	require.Contains(t, err.Error(), "keyword group 1 declared twice")
	require.Contains(t, err.Error(), "multi comment 0")
	require.Contains(t, err.Error(), "script delimiter 0")
	require.NotContains(t, err.Error(), "script delimiter 1")
}

func TestClone_IsIndependent(t *testing.T) {
	rs := sample()
	rs.Script.Styles = map[int]string{0: "x"}
	c := rs.Clone()

	c.Keywords[0].Words[0] = "changed"
	c.Strings.Quotes[0].Mark = "`"
	c.Script.Styles[0] = "y"

	require.Equal(t, "if", rs.Keywords[0].Words[0])
	require.Equal(t, `"`, rs.Strings.Quotes[0].Mark)
	require.Equal(t, "x", rs.Script.Styles[0])
}

func TestQuoteMarksAndHardChar(t *testing.T) {
	rs := sample()
	require.Equal(t, `"'`, rs.QuoteMarks())
	require.Equal(t, `\`, rs.HardChar())
	rs.Strings.HardChar = "'"
	require.Equal(t, "'", rs.HardChar())
}

func TestQuoteID(t *testing.T) {
	s := Strings{
		Quotes:       []Quote{{ID: 1, Mark: `"`}, {ID: 2, Mark: "'"}},
		Styles:       map[int]string{1: "a", 2: "b"},
		EscapeStyles: map[int]string{1: "c"},
	}
	require.Equal(t, 1, s.QuoteID(`"`))
	require.Equal(t, 0, s.QuoteID("'"))
	require.Equal(t, 0, s.QuoteID("`"))
}

func TestParseStrictness(t *testing.T) {
	for in, want := range map[string]Strictness{
		"":       Never,
		"never":  Never,
		"false":  Never,
		"Maybe":  Maybe,
		"ALWAYS": Always,
		"true":   Always,
	} {
		got, err := ParseStrictness(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseStrictness("sometimes")
	require.Error(t, err)
	require.Equal(t, "maybe", Maybe.String())
}

func TestCaps(t *testing.T) {
	require.Equal(t, "ECHO", CapsUpper.Apply("echo"))
	require.Equal(t, "echo", CapsLower.Apply("ECHO"))
	require.Equal(t, "Echo", CapsNoChange.Apply("Echo"))
}

func TestScript_BlockHighlighted(t *testing.T) {
	s := Script{Highlight: map[int]bool{1: false}}
	require.True(t, s.BlockHighlighted(0))
	require.False(t, s.BlockHighlighted(1))
}
