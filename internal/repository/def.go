package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

// FileDef is the YAML layout of one rule-set file.
type FileDef struct {
	Name         string            `yaml:"name"`
	Extensions   []string          `yaml:"extensions"`
	CaseKeywords string            `yaml:"case_keywords"` // none, upper or lower
	TabWidth     int               `yaml:"tab_width"`
	Keywords     []KeywordGroupDef `yaml:"keywords"`
	Comments     CommentsDef       `yaml:"comments"`
	Strings      StringsDef        `yaml:"strings"`
	Numbers      NumbersDef        `yaml:"numbers"`
	Symbols      []SymbolGroupDef  `yaml:"symbols"`
	Brackets     struct {
		Style string `yaml:"style"`
	} `yaml:"brackets"`
	Patterns        []PatternDef  `yaml:"patterns"`
	OOLang          bool          `yaml:"oo_lang"`
	ObjectSplitters []SplitterDef `yaml:"object_splitters"`
	Script          ScriptDef     `yaml:"script"`
	Control         ControlDef    `yaml:"control"`
}

type KeywordGroupDef struct {
	ID            int      `yaml:"id"`
	CaseSensitive bool     `yaml:"case_sensitive"`
	Style         string   `yaml:"style"`
	URL           string   `yaml:"url"`
	Words         []string `yaml:"words"`
}

type CommentsDef struct {
	Single []struct {
		ID     int    `yaml:"id"`
		Marker string `yaml:"marker"`
	} `yaml:"single"`
	Multi []struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"multi"`
	Patterns []struct {
		ID      int    `yaml:"id"`
		Pattern string `yaml:"pattern"`
	} `yaml:"patterns"`
	CaseSensitive bool           `yaml:"case_sensitive"`
	MultiStyle    string         `yaml:"multi_style"`
	Styles        map[int]string `yaml:"styles"`
}

type StringsDef struct {
	Quotes []struct {
		ID   int    `yaml:"id"`
		Mark string `yaml:"mark"`
	} `yaml:"quotes"`
	Styles         map[int]string `yaml:"styles"`
	EscapeChar     string         `yaml:"escape_char"`
	EscapePatterns []struct {
		ID      int    `yaml:"id"`
		Pattern string `yaml:"pattern"`
	} `yaml:"escape_patterns"`
	EscapeStyles map[int]string `yaml:"escape_styles"`
	HardQuote    *struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"hard_quote"`
	HardEscapes     []string `yaml:"hard_escapes"`
	HardChar        string   `yaml:"hard_char"`
	HardStyle       string   `yaml:"hard_style"`
	HardEscapeStyle string   `yaml:"hard_escape_style"`
}

// NumbersDef names formats instead of bit values; see ruleset.ParseNumberFormat.
type NumbersDef struct {
	Formats []string `yaml:"formats"`
	Groups  []struct {
		ID      int      `yaml:"id"`
		Formats []string `yaml:"formats"`
	} `yaml:"groups"`
	Styles map[int]string `yaml:"styles"`
}

type SymbolGroupDef struct {
	ID      int      `yaml:"id"`
	Style   string   `yaml:"style"`
	Symbols []string `yaml:"symbols"`
}

type PatternDef struct {
	ID        int    `yaml:"id"`
	Search    string `yaml:"search"`
	Modifiers string `yaml:"modifiers"`
	Replace   string `yaml:"replace"`
	Before    string `yaml:"before"`
	After     string `yaml:"after"`
	Class     string `yaml:"class"`
	Style     string `yaml:"style"`
}

type SplitterDef struct {
	ID    int    `yaml:"id"`
	Token string `yaml:"token"`
	Style string `yaml:"style"`
}

type ScriptDef struct {
	Strict     string `yaml:"strict"`
	Delimiters []struct {
		ID      int    `yaml:"id"`
		Open    string `yaml:"open"`
		Close   string `yaml:"close"`
		Pattern string `yaml:"pattern"`
	} `yaml:"delimiters"`
	Highlight map[int]bool   `yaml:"highlight"`
	Styles    map[int]string `yaml:"styles"`
}

type KeywordControlDef struct {
	DisallowedBefore  string `yaml:"disallowed_before"`
	DisallowedAfter   string `yaml:"disallowed_after"`
	SpaceAsWhitespace *bool  `yaml:"space_as_whitespace"`
}

type ControlDef struct {
	Keywords      KeywordControlDef         `yaml:"keywords"`
	KeywordGroups map[int]KeywordControlDef `yaml:"keyword_groups"`
	Comments      struct {
		DisallowedBefore string `yaml:"disallowed_before"`
		DisallowedAfter  string `yaml:"disallowed_after"`
	} `yaml:"comments"`
	OO struct {
		MatchBefore string `yaml:"match_before"`
		MatchAfter  string `yaml:"match_after"`
		MatchSpaces string `yaml:"match_spaces"`
	} `yaml:"oo"`
	NumbersPrecheck string            `yaml:"numbers_precheck"`
	EnableFlags     map[string]string `yaml:"enable_flags"`
}

// buildRuleSet converts a decoded file into a RuleSet. Unknown enum values
// are collected and reported together.
func buildRuleSet(def *FileDef) (*ruleset.RuleSet, error) {
	var errs []error

	rs := &ruleset.RuleSet{
		Name:       def.Name,
		Extensions: def.Extensions,
		TabWidth:   def.TabWidth,
		Brackets:   ruleset.Brackets{Style: def.Brackets.Style},
		OOLang:     def.OOLang,
	}

	switch strings.ToLower(def.CaseKeywords) {
	case "", "none":
		rs.CaseKeywords = ruleset.CapsNoChange
	case "upper":
		rs.CaseKeywords = ruleset.CapsUpper
	case "lower":
		rs.CaseKeywords = ruleset.CapsLower
	default:
		errs = append(errs, fmt.Errorf("case_keywords %q: want none, upper or lower", def.CaseKeywords))
	}

	for _, g := range def.Keywords {
		rs.Keywords = append(rs.Keywords, ruleset.KeywordGroup{
			ID:            g.ID,
			Words:         g.Words,
			CaseSensitive: g.CaseSensitive,
			Style:         g.Style,
			URL:           g.URL,
		})
	}

	c := def.Comments
	for _, s := range c.Single {
		rs.Comments.Single = append(rs.Comments.Single, ruleset.SingleComment{ID: s.ID, Marker: s.Marker})
	}
	for _, m := range c.Multi {
		rs.Comments.Multi = append(rs.Comments.Multi, ruleset.MultiComment{Open: m.Open, Close: m.Close})
	}
	for _, p := range c.Patterns {
		rs.Comments.Patterns = append(rs.Comments.Patterns, ruleset.PatternComment{ID: p.ID, Pattern: p.Pattern})
	}
	rs.Comments.CaseSensitive = c.CaseSensitive
	rs.Comments.MultiStyle = c.MultiStyle
	rs.Comments.Styles = c.Styles

	s := def.Strings
	for _, q := range s.Quotes {
		rs.Strings.Quotes = append(rs.Strings.Quotes, ruleset.Quote{ID: q.ID, Mark: q.Mark})
	}
	for _, p := range s.EscapePatterns {
		rs.Strings.EscapePatterns = append(rs.Strings.EscapePatterns, ruleset.EscapePattern{ID: p.ID, Pattern: p.Pattern})
	}
	rs.Strings.Styles = s.Styles
	rs.Strings.EscapeChar = s.EscapeChar
	rs.Strings.EscapeStyles = s.EscapeStyles
	if s.HardQuote != nil {
		rs.Strings.HardQuote = &ruleset.HardQuote{Open: s.HardQuote.Open, Close: s.HardQuote.Close}
	}
	rs.Strings.HardEscapes = s.HardEscapes
	rs.Strings.HardChar = s.HardChar
	rs.Strings.HardStyle = s.HardStyle
	rs.Strings.HardEscapeStyle = s.HardEscapeStyle

	flags, err := numberFormats(def.Numbers.Formats)
	if err != nil {
		errs = append(errs, err)
	}
	rs.Numbers.Flags = flags
	rs.Numbers.Styles = def.Numbers.Styles
	for _, g := range def.Numbers.Groups {
		f, err := numberFormats(g.Formats)
		if err != nil {
			errs = append(errs, fmt.Errorf("number group %d: %w", g.ID, err))
			continue
		}
		rs.Numbers.Groups = append(rs.Numbers.Groups, ruleset.NumberGroup{ID: g.ID, Flags: f})
	}

	for _, g := range def.Symbols {
		rs.Symbols = append(rs.Symbols, ruleset.SymbolGroup{ID: g.ID, Symbols: g.Symbols, Style: g.Style})
	}
	for _, p := range def.Patterns {
		rs.Patterns = append(rs.Patterns, ruleset.PatternGroup{
			ID:        p.ID,
			Search:    p.Search,
			Modifiers: p.Modifiers,
			Replace:   p.Replace,
			Before:    p.Before,
			After:     p.After,
			Class:     p.Class,
			Style:     p.Style,
		})
	}
	for _, sp := range def.ObjectSplitters {
		rs.ObjectSplitters = append(rs.ObjectSplitters, ruleset.ObjectSplitter{ID: sp.ID, Token: sp.Token, Style: sp.Style})
	}

	strict, err := ruleset.ParseStrictness(def.Script.Strict)
	if err != nil {
		errs = append(errs, fmt.Errorf("script: %w", err))
	}
	rs.Script.Strict = strict
	for _, d := range def.Script.Delimiters {
		rs.Script.Delimiters = append(rs.Script.Delimiters, ruleset.ScriptDelimiter{
			ID: d.ID, Open: d.Open, Close: d.Close, Pattern: d.Pattern,
		})
	}
	rs.Script.Highlight = def.Script.Highlight
	rs.Script.Styles = def.Script.Styles

	ctl := def.Control
	rs.Control.Keywords = keywordControl(ctl.Keywords)
	if len(ctl.KeywordGroups) > 0 {
		rs.Control.KeywordGroups = make(map[int]ruleset.KeywordControl, len(ctl.KeywordGroups))
		for id, kc := range ctl.KeywordGroups {
			rs.Control.KeywordGroups[id] = keywordControl(kc)
		}
	}
	rs.Control.Comments = ruleset.CommentControl{
		DisallowedBefore: ctl.Comments.DisallowedBefore,
		DisallowedAfter:  ctl.Comments.DisallowedAfter,
	}
	rs.Control.OO = ruleset.OOControl{
		MatchBefore: ctl.OO.MatchBefore,
		MatchAfter:  ctl.OO.MatchAfter,
		MatchSpaces: ctl.OO.MatchSpaces,
	}
	rs.Control.NumbersPrecheck = ctl.NumbersPrecheck
	if len(ctl.EnableFlags) > 0 {
		rs.Control.EnableFlags = make(map[string]ruleset.Strictness, len(ctl.EnableFlags))
		for name, v := range ctl.EnableFlags {
			st, err := ruleset.ParseStrictness(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("enable_flags.%s: %w", name, err))
				continue
			}
			rs.Control.EnableFlags[name] = st
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rs, nil
}

func keywordControl(d KeywordControlDef) ruleset.KeywordControl {
	return ruleset.KeywordControl{
		DisallowedBefore:  d.DisallowedBefore,
		DisallowedAfter:   d.DisallowedAfter,
		SpaceAsWhitespace: d.SpaceAsWhitespace,
	}
}

func numberFormats(names []string) (ruleset.NumberFormat, error) {
	var flags ruleset.NumberFormat
	for _, n := range names {
		f, ok := ruleset.ParseNumberFormat(strings.ToLower(strings.TrimSpace(n)))
		if !ok {
			return 0, fmt.Errorf("unknown number format %q", n)
		}
		flags |= f
	}
	return flags, nil
}
