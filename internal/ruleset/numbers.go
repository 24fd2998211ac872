package ruleset

import (
	"math/bits"
	"slices"
)

// NumberFormat is a bit set of supported numeric literal notations.
type NumberFormat uint32

const (
	IntBasic         NumberFormat = 1
	IntCStyle        NumberFormat = 2
	BinSuffix        NumberFormat = 16
	BinPrefixPercent NumberFormat = 32
	BinPrefix0B      NumberFormat = 64
	OctPrefix        NumberFormat = 256
	OctPrefix0O      NumberFormat = 512
	OctPrefixAt      NumberFormat = 1024
	OctSuffix        NumberFormat = 2048
	HexPrefix        NumberFormat = 4096
	HexPrefixDollar  NumberFormat = 8192
	HexSuffix        NumberFormat = 16384
	FltNonSci        NumberFormat = 65536
	FltNonSciF       NumberFormat = 131072
	FltSciShort      NumberFormat = 262144
	FltSciZero       NumberFormat = 524288

	// DefaultNumbers applies when a rule set enables numbers without flags.
	DefaultNumbers = IntBasic | FltNonSci
)

var numberFormatNames = map[string]NumberFormat{
	"int_basic":          IntBasic,
	"int_cstyle":         IntCStyle,
	"bin_suffix":         BinSuffix,
	"bin_prefix_percent": BinPrefixPercent,
	"bin_prefix_0b":      BinPrefix0B,
	"oct_prefix":         OctPrefix,
	"oct_prefix_0o":      OctPrefix0O,
	"oct_prefix_at":      OctPrefixAt,
	"oct_suffix":         OctSuffix,
	"hex_prefix":         HexPrefix,
	"hex_prefix_dollar":  HexPrefixDollar,
	"hex_suffix":         HexSuffix,
	"flt_nonsci":         FltNonSci,
	"flt_nonsci_f":       FltNonSciF,
	"flt_sci_short":      FltSciShort,
	"flt_sci_zero":       FltSciZero,
}

// ParseNumberFormat maps a flag name such as "hex_prefix" to its bit.
func ParseNumberFormat(name string) (NumberFormat, bool) {
	f, ok := numberFormatNames[name]
	return f, ok
}

// Bits returns the individual flags set in f, lowest first.
func (f NumberFormat) Bits() []NumberFormat {
	var out []NumberFormat
	for v := uint32(f); v != 0; v &= v - 1 {
		out = append(out, NumberFormat(1)<<bits.TrailingZeros32(v))
	}
	return out
}

// NumberGroup assigns a set of formats to one style group.
type NumberGroup struct {
	ID    int
	Flags NumberFormat
}

// Numbers describes numeric literal highlighting. When Groups is set it takes
// precedence over Flags.
type Numbers struct {
	Flags  NumberFormat
	Groups []NumberGroup
	Styles map[int]string
}

// StyleGroups partitions the enabled formats into style groups, ordered by
// group id. In bitmask form a bit with index i goes to group i when Styles has
// an entry under i or under the bit value itself, and to group 0 otherwise.
func (n *Numbers) StyleGroups() []NumberGroup {
	if len(n.Groups) > 0 {
		out := slices.Clone(n.Groups)
		slices.SortStableFunc(out, func(a, b NumberGroup) int { return a.ID - b.ID })
		return out
	}

	flags := n.Flags
	if flags == 0 {
		flags = DefaultNumbers
	}
	byGroup := make(map[int]NumberFormat)
	for _, bit := range flags.Bits() {
		idx := bits.TrailingZeros32(uint32(bit))
		_, byIndex := n.Styles[idx]
		_, byValue := n.Styles[int(bit)]
		if byIndex || byValue {
			byGroup[idx] |= bit
		} else {
			byGroup[0] |= bit
		}
	}
	out := make([]NumberGroup, 0, len(byGroup))
	for id, f := range byGroup {
		out = append(out, NumberGroup{ID: id, Flags: f})
	}
	slices.SortFunc(out, func(a, b NumberGroup) int { return a.ID - b.ID })
	return out
}

// Style returns the style of a number group, resolving bit-value keys.
func (n *Numbers) Style(group int) string {
	if s, ok := n.Styles[group]; ok {
		return s
	}
	if len(n.Groups) == 0 && group > 0 && group < 32 {
		return n.Styles[1<<group]
	}
	return ""
}
