package render

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ColorToken names one terminal color slot. Tokens match the class prefixes
// the engine emits.
type ColorToken string

const (
	TokenKeyword ColorToken = "keyword"
	TokenComment ColorToken = "comment"
	TokenString  ColorToken = "string"
	TokenEscape  ColorToken = "escape"
	TokenNumber  ColorToken = "number"
	TokenMethod  ColorToken = "method"
	TokenBracket ColorToken = "bracket"
	TokenSymbol  ColorToken = "symbol"
	TokenRegexp  ColorToken = "regexp"
	TokenScript  ColorToken = "script"
	TokenLink    ColorToken = "link"
	TokenGutter  ColorToken = "gutter"
)

// AllTokens lists every ColorToken.
func AllTokens() []ColorToken {
	return []ColorToken{
		TokenKeyword, TokenComment, TokenString, TokenEscape, TokenNumber, TokenMethod,
		TokenBracket, TokenSymbol, TokenRegexp, TokenScript, TokenLink, TokenGutter,
	}
}

// Preset is a named built-in palette.
type Preset struct {
	Name        string
	Description string
	Colors      map[ColorToken]string
}

var DefaultPreset = Preset{
	Name:        "default",
	Description: "Default gensynth palette",
	Colors: map[ColorToken]string{
		TokenKeyword: "#CBA6F7",
		TokenComment: "#696969",
		TokenString:  "#F9E2AF",
		TokenEscape:  "#FAB387",
		TokenNumber:  "#FAB387",
		TokenMethod:  "#94E2D5",
		TokenBracket: "#89B4FA",
		TokenSymbol:  "#F38BA8",
		TokenRegexp:  "#A6E3A1",
		TokenScript:  "",
		TokenLink:    "#54A0FF",
		TokenGutter:  "#696969",
	},
}

var CatppuccinLattePreset = Preset{
	Name:        "catppuccin-latte",
	Description: "Catppuccin Latte, for light terminals",
	Colors: map[ColorToken]string{
		TokenKeyword: "#8839EF",
		TokenComment: "#9CA0B0",
		TokenString:  "#DF8E1D",
		TokenEscape:  "#FE640B",
		TokenNumber:  "#FE640B",
		TokenMethod:  "#179299",
		TokenBracket: "#1E66F5",
		TokenSymbol:  "#D20F39",
		TokenRegexp:  "#40A02B",
		TokenLink:    "#1E66F5",
		TokenGutter:  "#9CA0B0",
	},
}

var DraculaPreset = Preset{
	Name:        "dracula",
	Description: "Dracula",
	Colors: map[ColorToken]string{
		TokenKeyword: "#FF79C6",
		TokenComment: "#6272A4",
		TokenString:  "#F1FA8C",
		TokenEscape:  "#FFB86C",
		TokenNumber:  "#BD93F9",
		TokenMethod:  "#50FA7B",
		TokenBracket: "#F8F8F2",
		TokenSymbol:  "#FF79C6",
		TokenRegexp:  "#8BE9FD",
		TokenLink:    "#8BE9FD",
		TokenGutter:  "#6272A4",
	},
}

var NordPreset = Preset{
	Name:        "nord",
	Description: "Nord",
	Colors: map[ColorToken]string{
		TokenKeyword: "#81A1C1",
		TokenComment: "#616E88",
		TokenString:  "#A3BE8C",
		TokenEscape:  "#EBCB8B",
		TokenNumber:  "#B48EAD",
		TokenMethod:  "#88C0D0",
		TokenBracket: "#ECEFF4",
		TokenSymbol:  "#81A1C1",
		TokenRegexp:  "#EBCB8B",
		TokenLink:    "#88C0D0",
		TokenGutter:  "#4C566A",
	},
}

// Presets holds every built-in palette by name.
var Presets = map[string]Preset{
	"default":          DefaultPreset,
	"catppuccin-mocha": DefaultPreset,
	"catppuccin-latte": CatppuccinLattePreset,
	"dracula":          DraculaPreset,
	"nord":             NordPreset,
}

// ThemeConfig mirrors config.ThemeConfig to avoid an import cycle.
type ThemeConfig struct {
	Preset string
	Colors map[string]string
}

// Theme is a resolved palette.
type Theme struct {
	colors map[ColorToken]string
}

// NewTheme starts from the default palette, applies the preset, then the
// individual overrides. An empty override clears a slot.
func NewTheme(cfg ThemeConfig) (*Theme, error) {
	colors := maps.Clone(DefaultPreset.Colors)
	if cfg.Preset != "" && cfg.Preset != "default" {
		preset, ok := Presets[cfg.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown theme preset: %s", cfg.Preset)
		}
		maps.Copy(colors, preset.Colors)
	}
	for key, value := range cfg.Colors {
		token := ColorToken(key)
		if !slices.Contains(AllTokens(), token) {
			return nil, fmt.Errorf("unknown color token: %s", key)
		}
		if value != "" && !isValidHexColor(value) {
			return nil, fmt.Errorf("invalid hex color for %s: %s", key, value)
		}
		colors[token] = value
	}
	return &Theme{colors: colors}, nil
}

// Color returns the hex color of a token, or "" when unset.
func (t *Theme) Color(token ColorToken) string {
	return t.colors[token]
}

// tokenForClass maps an engine class to a color slot.
func tokenForClass(class string) (ColorToken, bool) {
	switch {
	case strings.HasPrefix(class, "kw"):
		return TokenKeyword, true
	case strings.HasPrefix(class, "co"):
		return TokenComment, true
	case strings.HasPrefix(class, "st"):
		return TokenString, true
	case strings.HasPrefix(class, "es"):
		return TokenEscape, true
	case strings.HasPrefix(class, "nu"):
		return TokenNumber, true
	case strings.HasPrefix(class, "me"):
		return TokenMethod, true
	case strings.HasPrefix(class, "br"):
		return TokenBracket, true
	case strings.HasPrefix(class, "sy"):
		return TokenSymbol, true
	case strings.HasPrefix(class, "sc"):
		return TokenScript, true
	case class == "":
		return "", false
	}
	// re{N} and custom pattern classes
	return TokenRegexp, true
}

func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	_, err := strconv.ParseUint(hex, 16, 64)
	return err == nil
}
