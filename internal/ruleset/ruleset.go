// Package ruleset defines the declarative description of a language's lexical
// categories consumed by the highlighting engine.
//
// A RuleSet is built once by a loader and then handed to an engine. Derived
// caches are keyed by Generation: structural changes (adding or removing a
// keyword group, removing a word, changing case rules) bump the generation,
// while adding a word to an existing group only appends a KeywordPatch.
package ruleset

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zjrosen/gensynth/internal/log"
)

// Lookup errors shared by repositories and the engine.
var (
	ErrNotFound   = errors.New("rule set not found")
	ErrUnreadable = errors.New("rule set not readable")
	ErrMalformed  = errors.New("malformed rule set")
)

// ErrEmptyKeywordGroup is returned when a keyword group without words is added.
// An empty alternation would match everywhere.
var ErrEmptyKeywordGroup = errors.New("empty keyword group")

// ErrUnknownGroup is returned when a keyword operation names a missing group.
var ErrUnknownGroup = errors.New("unknown keyword group")

// ErrDuplicateKeyword is returned when a word already belongs to another group.
var ErrDuplicateKeyword = errors.New("keyword already in another group")

// Strictness controls when embedded-script splitting applies.
type Strictness int

const (
	Never Strictness = iota
	Maybe
	Always
)

func (s Strictness) String() string {
	switch s {
	case Never:
		return "never"
	case Maybe:
		return "maybe"
	case Always:
		return "always"
	default:
		return "unknown"
	}
}

// ParseStrictness maps "never", "maybe" and "always" (case-insensitive).
// Booleans are accepted as aliases of always/never.
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "never", "false", "no":
		return Never, nil
	case "maybe":
		return Maybe, nil
	case "always", "true", "yes":
		return Always, nil
	}
	return Never, fmt.Errorf("invalid strictness %q", s)
}

// Caps is the case transformation applied to highlighted keywords.
type Caps int

const (
	CapsNoChange Caps = iota
	CapsUpper
	CapsLower
)

// Apply transforms s according to c.
func (c Caps) Apply(s string) string {
	switch c {
	case CapsUpper:
		return strings.ToUpper(s)
	case CapsLower:
		return strings.ToLower(s)
	default:
		return s
	}
}

// KeywordGroup is one named set of words sharing a style and case rule.
type KeywordGroup struct {
	ID            int
	Words         []string
	CaseSensitive bool
	Style         string
	// URL is an optional link template. {FNAME}, {FNAMEL} and {FNAMEU} are
	// replaced by the matched word verbatim, lowercased and uppercased.
	URL string
}

// Has reports whether word is in the group, honoring its case rule.
func (g *KeywordGroup) Has(word string) bool {
	for _, w := range g.Words {
		if w == word || (!g.CaseSensitive && strings.EqualFold(w, word)) {
			return true
		}
	}
	return false
}

// SingleComment is a comment running from Marker to end of line.
type SingleComment struct {
	ID     int
	Marker string
}

// MultiComment is a comment delimited by an opener and a closer.
type MultiComment struct {
	Open  string
	Close string
}

// PatternComment is a comment recognised by a regular expression. The whole
// match is the comment.
type PatternComment struct {
	ID      int
	Pattern string
}

// Comments groups all comment rules of a language.
type Comments struct {
	Single   []SingleComment
	Multi    []MultiComment
	Patterns []PatternComment
	// CaseSensitive applies to single-line markers such as REM.
	CaseSensitive bool
	MultiStyle    string
	Styles        map[int]string
}

// Quote is a string delimiter; Mark may be longer than one character.
type Quote struct {
	ID   int
	Mark string
}

// EscapePattern highlights escape sequences inside strings.
type EscapePattern struct {
	ID      int
	Pattern string
}

// HardQuote delimits strings in which only hard escapes are recognised.
type HardQuote struct {
	Open  string
	Close string
}

// Strings groups string literal rules.
type Strings struct {
	Quotes         []Quote
	Styles         map[int]string
	EscapeChar     string
	EscapePatterns []EscapePattern
	EscapeStyles   map[int]string

	HardQuote       *HardQuote
	HardEscapes     []string
	HardChar        string
	HardStyle       string
	HardEscapeStyle string
}

// QuoteID returns the style group for a quote mark. Marks without both a
// string and an escape style fall back to group 0.
func (s *Strings) QuoteID(mark string) int {
	for _, q := range s.Quotes {
		if q.Mark != mark {
			continue
		}
		_, hasStyle := s.Styles[q.ID]
		_, hasEscape := s.EscapeStyles[q.ID]
		if hasStyle && hasEscape {
			return q.ID
		}
		return 0
	}
	return 0
}

// SymbolGroup is a set of literal symbols sharing a style.
type SymbolGroup struct {
	ID      int
	Symbols []string
	Style   string
}

// Brackets holds the style applied to [ ] ( ) { }.
type Brackets struct {
	Style string
}

// PatternGroup is a custom highlighting rule. Replace, Before and After may
// reference capture groups as \N; an empty Replace keeps the whole match.
type PatternGroup struct {
	ID        int
	Search    string
	Modifiers string
	Replace   string
	Before    string
	After     string
	// Class overrides the generated CSS class in class mode.
	Class string
	Style string
	// StyleFunc computes an inline style from the matched (escaped) text.
	// It takes precedence over Style.
	StyleFunc func(match string) string
}

// ObjectSplitter marks member access, e.g. "." or "->".
type ObjectSplitter struct {
	ID    int
	Token string
	Style string
}

// ScriptDelimiter marks an embedded code block. Either Open/Close literals or
// a Pattern with named groups "start"/"end" (or groups 1 and 2) is set.
type ScriptDelimiter struct {
	ID      int
	Open    string
	Close   string
	Pattern string
}

// IsPattern reports whether the delimiter is pattern based.
func (d ScriptDelimiter) IsPattern() bool {
	return d.Pattern != ""
}

// Script configures strict (embedded) mode.
type Script struct {
	Strict     Strictness
	Delimiters []ScriptDelimiter
	// Highlight disables highlighting of a block group when false.
	Highlight map[int]bool
	Styles    map[int]string
}

// BlockHighlighted reports whether blocks of group id are tokenized.
func (s *Script) BlockHighlighted(id int) bool {
	on, ok := s.Highlight[id]
	return !ok || on
}

// KeywordControl overrides keyword boundary handling.
// DisallowedBefore/After are complete lookaround expressions.
type KeywordControl struct {
	DisallowedBefore  string
	DisallowedAfter   string
	SpaceAsWhitespace *bool
}

// CommentControl lists characters that may not surround a single-line marker.
type CommentControl struct {
	DisallowedBefore string
	DisallowedAfter  string
}

// OOControl tunes member-access matching.
type OOControl struct {
	MatchBefore string
	MatchAfter  string
	MatchSpaces string
}

// ParserControl collects per-language tuning of the classifier.
type ParserControl struct {
	Keywords        KeywordControl
	KeywordGroups   map[int]KeywordControl
	Comments        CommentControl
	OO              OOControl
	NumbersPrecheck string
	// EnableFlags switches categories on or off at load time; the key "all"
	// applies to every category.
	EnableFlags map[string]Strictness
}

// RuleSet is the complete lexical description of one language.
type RuleSet struct {
	Name         string
	Extensions   []string
	CaseKeywords Caps
	TabWidth     int

	Keywords        []KeywordGroup
	Comments        Comments
	Strings         Strings
	Numbers         Numbers
	Symbols         []SymbolGroup
	Brackets        Brackets
	Patterns        []PatternGroup
	OOLang          bool
	ObjectSplitters []ObjectSplitter
	Script          Script
	Control         ParserControl

	generation uint64
	patches    []KeywordPatch
}

// KeywordPatch records a word added to an existing group since the last
// structural change.
type KeywordPatch struct {
	Group int
	Word  string
}

// Generation identifies the structural version of the keyword groups.
func (rs *RuleSet) Generation() uint64 {
	return rs.generation
}

// Patches returns the keyword additions recorded after index since.
func (rs *RuleSet) Patches(since int) []KeywordPatch {
	if since >= len(rs.patches) {
		return nil
	}
	return rs.patches[since:]
}

func (rs *RuleSet) structuralChange() {
	rs.generation++
	rs.patches = nil
}

// KeywordGroup returns the group with the given id.
func (rs *RuleSet) KeywordGroup(id int) (*KeywordGroup, bool) {
	for i := range rs.Keywords {
		if rs.Keywords[i].ID == id {
			return &rs.Keywords[i], true
		}
	}
	return nil, false
}

// AddKeywordGroup inserts or replaces a keyword group. Groups without words,
// or with a word another group already declares, are rejected and leave the
// rule set untouched.
func (rs *RuleSet) AddKeywordGroup(g KeywordGroup) error {
	words := dedupe(g.Words)
	if len(words) == 0 {
		log.Warn(log.CatRuleSet, "rejected empty keyword group", "ruleset", rs.Name, "group", g.ID)
		return fmt.Errorf("group %d: %w", g.ID, ErrEmptyKeywordGroup)
	}
	if err := rs.checkUnique(g.ID, words...); err != nil {
		return err
	}
	g.Words = words

	if existing, ok := rs.KeywordGroup(g.ID); ok {
		*existing = g
	} else {
		rs.Keywords = append(rs.Keywords, g)
	}
	rs.structuralChange()
	return nil
}

// checkUnique fails when a group other than id declares one of words.
func (rs *RuleSet) checkUnique(id int, words ...string) error {
	for i := range rs.Keywords {
		other := &rs.Keywords[i]
		if other.ID == id {
			continue
		}
		for _, w := range words {
			if slices.Contains(other.Words, w) {
				return fmt.Errorf("%q in group %d: %w", w, other.ID, ErrDuplicateKeyword)
			}
		}
	}
	return nil
}

// RemoveKeywordGroup deletes the group with the given id.
func (rs *RuleSet) RemoveKeywordGroup(id int) bool {
	for i := range rs.Keywords {
		if rs.Keywords[i].ID == id {
			rs.Keywords = slices.Delete(rs.Keywords, i, i+1)
			rs.structuralChange()
			return true
		}
	}
	return false
}

// AddKeyword appends word to an existing group. The change is recorded as a
// patch so compiled alternations can be extended instead of rebuilt.
func (rs *RuleSet) AddKeyword(id int, word string) error {
	if word == "" {
		return nil
	}
	g, ok := rs.KeywordGroup(id)
	if !ok {
		return fmt.Errorf("group %d: %w", id, ErrUnknownGroup)
	}
	if slices.Contains(g.Words, word) {
		return nil
	}
	if err := rs.checkUnique(id, word); err != nil {
		return err
	}
	g.Words = append(g.Words, word)
	rs.patches = append(rs.patches, KeywordPatch{Group: id, Word: word})
	return nil
}

// RemoveKeyword deletes word from a group. Removing the last word removes the
// whole group, since an empty group is never kept.
func (rs *RuleSet) RemoveKeyword(id int, word string) bool {
	g, ok := rs.KeywordGroup(id)
	if !ok {
		return false
	}
	idx := slices.Index(g.Words, word)
	if idx < 0 {
		return false
	}
	g.Words = slices.Delete(g.Words, idx, idx+1)
	if len(g.Words) == 0 {
		return rs.RemoveKeywordGroup(id)
	}
	rs.structuralChange()
	return true
}

// SetCaseSensitive changes the case rule of a keyword group.
func (rs *RuleSet) SetCaseSensitive(id int, sensitive bool) error {
	g, ok := rs.KeywordGroup(id)
	if !ok {
		return fmt.Errorf("group %d: %w", id, ErrUnknownGroup)
	}
	if g.CaseSensitive != sensitive {
		g.CaseSensitive = sensitive
		rs.structuralChange()
	}
	return nil
}

// QuoteMarks concatenates every quote mark, used to extend keyword boundaries.
func (rs *RuleSet) QuoteMarks() string {
	var b strings.Builder
	for _, q := range rs.Strings.Quotes {
		b.WriteString(q.Mark)
	}
	return b.String()
}

// HardChar returns the character that escapes a hard-quote closer.
func (rs *RuleSet) HardChar() string {
	if rs.Strings.HardChar != "" {
		return rs.Strings.HardChar
	}
	return rs.Strings.EscapeChar
}

// Validate rejects rule sets that would make the scanner misbehave.
func (rs *RuleSet) Validate() error {
	var errs []error
	if strings.TrimSpace(rs.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	seen := make(map[int]bool, len(rs.Keywords))
	for _, g := range rs.Keywords {
		if seen[g.ID] {
			errs = append(errs, fmt.Errorf("keyword group %d declared twice", g.ID))
		}
		seen[g.ID] = true
		if len(g.Words) == 0 {
			errs = append(errs, fmt.Errorf("keyword group %d: %w", g.ID, ErrEmptyKeywordGroup))
		}
	}
	for i, q := range rs.Strings.Quotes {
		if q.Mark == "" {
			errs = append(errs, fmt.Errorf("quote %d: empty mark", i))
		}
	}
	for i, c := range rs.Comments.Single {
		if c.Marker == "" {
			errs = append(errs, fmt.Errorf("single comment %d: empty marker", i))
		}
	}
	for i, c := range rs.Comments.Multi {
		if c.Open == "" || c.Close == "" {
			errs = append(errs, fmt.Errorf("multi comment %d: empty delimiter", i))
		}
	}
	if hq := rs.Strings.HardQuote; hq != nil && (hq.Open == "" || hq.Close == "") {
		errs = append(errs, errors.New("hard quote: empty delimiter"))
	}
	for i, d := range rs.Script.Delimiters {
		if !d.IsPattern() && (d.Open == "" || d.Close == "") {
			errs = append(errs, fmt.Errorf("script delimiter %d: empty delimiter", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w: %w", rs.Name, ErrMalformed, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with rs.
func (rs *RuleSet) Clone() *RuleSet {
	c := *rs
	c.Extensions = slices.Clone(rs.Extensions)
	c.Keywords = make([]KeywordGroup, len(rs.Keywords))
	for i, g := range rs.Keywords {
		g.Words = slices.Clone(g.Words)
		c.Keywords[i] = g
	}
	c.Comments.Single = slices.Clone(rs.Comments.Single)
	c.Comments.Multi = slices.Clone(rs.Comments.Multi)
	c.Comments.Patterns = slices.Clone(rs.Comments.Patterns)
	c.Comments.Styles = cloneMap(rs.Comments.Styles)
	c.Strings.Quotes = slices.Clone(rs.Strings.Quotes)
	c.Strings.Styles = cloneMap(rs.Strings.Styles)
	c.Strings.EscapePatterns = slices.Clone(rs.Strings.EscapePatterns)
	c.Strings.EscapeStyles = cloneMap(rs.Strings.EscapeStyles)
	c.Strings.HardEscapes = slices.Clone(rs.Strings.HardEscapes)
	if rs.Strings.HardQuote != nil {
		hq := *rs.Strings.HardQuote
		c.Strings.HardQuote = &hq
	}
	c.Numbers.Groups = slices.Clone(rs.Numbers.Groups)
	c.Numbers.Styles = cloneMap(rs.Numbers.Styles)
	c.Symbols = make([]SymbolGroup, len(rs.Symbols))
	for i, g := range rs.Symbols {
		g.Symbols = slices.Clone(g.Symbols)
		c.Symbols[i] = g
	}
	c.Patterns = slices.Clone(rs.Patterns)
	c.ObjectSplitters = slices.Clone(rs.ObjectSplitters)
	c.Script.Delimiters = slices.Clone(rs.Script.Delimiters)
	c.Script.Highlight = cloneMap(rs.Script.Highlight)
	c.Script.Styles = cloneMap(rs.Script.Styles)
	c.Control.KeywordGroups = cloneMap(rs.Control.KeywordGroups)
	c.Control.EnableFlags = cloneMap(rs.Control.EnableFlags)
	c.patches = slices.Clone(rs.patches)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func dedupe(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
