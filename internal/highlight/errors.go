package highlight

import (
	"errors"
	"fmt"

	"github.com/zjrosen/gensynth/internal/ruleset"
)

// Error states recorded on an Engine. A Parse under any of them returns the
// escaped input without tokenizing.
var (
	ErrRuleSetNotFound   = ruleset.ErrNotFound
	ErrRuleSetUnreadable = ruleset.ErrUnreadable
	ErrMalformedRuleSet  = ruleset.ErrMalformed
	ErrConfiguration     = errors.New("invalid configuration")
)

// PatternError reports a rule-set regular expression that failed to compile.
// The affected group is skipped; the rest of the document still highlights.
type PatternError struct {
	Category string
	Group    int
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s group %d: %v", e.Category, e.Group, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
