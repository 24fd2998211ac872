package highlight

import (
	"time"

	"github.com/zjrosen/gensynth/internal/optimizer"
)

type options struct {
	classes      bool
	splitLines   bool
	keywordLinks bool
	linkTarget   string
	linkStyle    string
	matchTimeout time.Duration
	strict       *bool
	optimizer    optimizer.Options
}

func defaultOptions() options {
	return options{
		classes:      true,
		keywordLinks: true,
	}
}

// Option configures an Engine.
type Option func(*options)

// WithClasses selects CSS class attributes (true) or inline styles (false).
func WithClasses(on bool) Option {
	return func(o *options) { o.classes = on }
}

// WithLineSplitting closes and reopens every span at each line break so each
// output line stands alone. Formatters that number lines need it.
func WithLineSplitting(on bool) Option {
	return func(o *options) { o.splitLines = on }
}

// WithKeywordLinks toggles hyperlinks on keyword groups that declare a URL.
func WithKeywordLinks(on bool) Option {
	return func(o *options) { o.keywordLinks = on }
}

// WithLinkTarget sets the target attribute of keyword links.
func WithLinkTarget(target string) Option {
	return func(o *options) { o.linkTarget = target }
}

// WithLinkStyle sets an inline style on keyword links in style mode.
func WithLinkStyle(style string) Option {
	return func(o *options) { o.linkStyle = style }
}

// WithMatchTimeout bounds every regular expression match. A match that times
// out leaves the affected stage unhighlighted for that run.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) { o.matchTimeout = d }
}

// WithStrictMode overrides embedded-script splitting for rule sets whose
// strictness is "maybe". Other rule sets ignore it.
func WithStrictMode(on bool) Option {
	return func(o *options) { o.strict = &on }
}

// WithOptimizer tunes keyword fragment ceilings.
func WithOptimizer(opts optimizer.Options) Option {
	return func(o *options) { o.optimizer = opts }
}
