package highlight

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

// numberFormats holds one sub-pattern per numeric notation. All of them are
// matched case-insensitively against escaped text.
var numberFormats = []struct {
	flag    ruleset.NumberFormat
	pattern string
}{
	{ruleset.IntBasic, `(?:(?<![0-9a-z_\.%$@])|(?<=\.\.))(?<![\d\.]e[+\-])([1-9]\d*?|0)(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.IntCStyle, `(?<![0-9a-z_\.%])(?<![\d\.]e[+\-])([1-9]\d*?|0)l(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.BinSuffix, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])[01]+?[bB](?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.BinPrefixPercent, `(?<![0-9a-z_\.%])(?<![\d\.]e[+\-])%[01]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.BinPrefix0B, `(?<![0-9a-z_\.%])(?<![\d\.]e[+\-])0b[01]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.OctPrefix, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])0[0-7]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.OctPrefix0O, `(?<![0-9a-z_\.%])(?<![\d\.]e[+\-])0o[0-7]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.OctPrefixAt, `(?<![0-9a-z_\.%])(?<![\d\.]e[+\-])\@[0-7]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.OctSuffix, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])[0-7]+?o(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.HexPrefix, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])0x[0-9a-fA-F]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.HexPrefixDollar, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])\$[0-9a-fA-F]+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.HexSuffix, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])\d[0-9a-fA-F]*?[hH](?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.FltNonSci, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])\d+?\.\d+?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.FltNonSciF, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])(?:\d+?(?:\.\d*?)?|\.\d+?)f(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.FltSciShort, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])\.\d+?(?:e[+\-]?\d+?)?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
	{ruleset.FltSciZero, `(?<![0-9a-z_\.])(?<![\d\.]e[+\-])(?:\d+?(?:\.\d*?)?|\.\d+?)(?:e[+\-]?\d+?)?(?![0-9a-z]|\.(?:[eE][+\-]?)?\d)`},
}

// numberGuardBefore and numberGuardAfter keep number matches out of
// placeholder markup emitted by earlier stages.
const (
	numberGuardBefore = `(?<!<\|/)(?<!<\|!PAT)(?<!<\|/NUM!)(?<!\d/>)`
	numberGuardAfter  = `(?!(?:<DOT>|(?>[^<]))+>)(?![^<]*>)(?!\|>)(?!/>)`
)

const defaultNumbersPrecheck = `\d`

type numberRule struct {
	group int
	re    *regexp2.Regexp
}

// numberPattern joins the sub-patterns enabled in flags.
func numberPattern(flags ruleset.NumberFormat) string {
	var alts []string
	for _, f := range numberFormats {
		if flags&f.flag != 0 {
			alts = append(alts, f.pattern)
		}
	}
	if len(alts) == 0 {
		return ""
	}
	return numberGuardBefore + "(" + strings.Join(alts, "|") + ")" + numberGuardAfter
}

// newNumberRules compiles one alternation per style group.
func newNumberRules(n *ruleset.Numbers, timeout time.Duration) ([]numberRule, []*PatternError) {
	var (
		rules []numberRule
		errs  []*PatternError
	)
	for _, g := range n.StyleGroups() {
		expr := numberPattern(g.Flags)
		if expr == "" {
			continue
		}
		re, err := compile(expr, regexp2.IgnoreCase, timeout)
		if err != nil {
			errs = append(errs, &PatternError{Category: ruleset.PermNumbers, Group: g.ID, Err: err})
			continue
		}
		rules = append(rules, numberRule{group: g.ID, re: re})
	}
	return rules, errs
}
