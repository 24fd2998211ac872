package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/gensynth/internal/config"
	"github.com/zjrosen/gensynth/internal/flags"
	"github.com/zjrosen/gensynth/internal/highlight"
	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/render"
	"github.com/zjrosen/gensynth/internal/ruleset"
	"github.com/zjrosen/gensynth/internal/tracing"
)

// Output formats.
const (
	FormatHTML = "html"
	FormatANSI = "ansi"
	FormatCSS  = "css"
)

// RuleSetSource resolves rule sets for the service.
type RuleSetSource interface {
	LookupContext(ctx context.Context, name string) (*ruleset.RuleSet, error)
}

// Service highlights documents with the configured engine and renderer. It
// builds a fresh Engine per call, so it is safe for concurrent use.
type Service struct {
	source RuleSetSource
	cfg    config.Config
	perms  *flags.Registry
	tracer trace.Tracer
	out    io.Writer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTracer records spans on tracer.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithOutput sets the writer ANSI output is destined for; its color profile
// is detected from it.
func WithOutput(w io.Writer) ServiceOption {
	return func(s *Service) { s.out = w }
}

// NewService returns a Service over source.
func NewService(source RuleSetSource, cfg config.Config, opts ...ServiceOption) *Service {
	s := &Service{
		source: source,
		cfg:    cfg,
		perms:  flags.New(cfg.Permissions),
		tracer: noop.NewTracerProvider().Tracer("gensynth"),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the service renders with.
func (s *Service) Config() config.Config { return s.cfg }

// Highlight renders src as lang in the configured output format. The css
// format returns the stylesheet for lang and ignores src.
func (s *Service) Highlight(ctx context.Context, lang, src string) (string, error) {
	format := s.cfg.Output.Format
	if format == "" {
		format = FormatHTML
	}
	return tracing.Run(ctx, s.tracer, tracing.SpanHighlight, func(ctx context.Context) (string, error) {
		rs, err := s.lookup(ctx, lang)
		if err != nil {
			return "", err
		}
		engine, err := s.engine(rs, format)
		if err != nil {
			return "", err
		}
		if format == FormatCSS {
			return s.stylesheet(lang, engine), nil
		}

		parsed := s.parse(ctx, engine, src)
		out, err := tracing.Run(ctx, s.tracer, tracing.SpanFormat, func(context.Context) (string, error) {
			return s.format(lang, rs, format, parsed)
		}, attribute.String(tracing.AttrFormat, format))
		if err != nil {
			log.ErrorContext(ctx, log.CatRender, "formatting failed", err, "language", lang, "format", format)
			return "", err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int(tracing.AttrOutputBytes, len(out)))
		return out, nil
	},
		attribute.String(tracing.AttrLanguage, lang),
		attribute.Int(tracing.AttrSourceBytes, len(src)),
		attribute.String(tracing.AttrFormat, format),
	)
}

// Stylesheet returns the CSS for lang with the configured permissions.
func (s *Service) Stylesheet(ctx context.Context, lang string) (string, error) {
	rs, err := s.lookup(ctx, lang)
	if err != nil {
		return "", err
	}
	engine, err := s.engine(rs, FormatCSS)
	if err != nil {
		return "", err
	}
	return s.stylesheet(lang, engine), nil
}

func (s *Service) lookup(ctx context.Context, lang string) (*ruleset.RuleSet, error) {
	return tracing.Run(ctx, s.tracer, tracing.SpanLookup, func(ctx context.Context) (*ruleset.RuleSet, error) {
		rs, err := s.source.LookupContext(ctx, lang)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", lang, err)
		}
		log.DebugContext(ctx, log.CatRepo, "language resolved", "language", lang, "name", rs.Name)
		return rs, nil
	}, attribute.String(tracing.AttrLanguage, lang))
}

// engine builds an Engine for one request with the configured overrides.
func (s *Service) engine(rs *ruleset.RuleSet, format string) (*highlight.Engine, error) {
	ec := s.cfg.Engine
	numbered := s.lineNumbers() != render.LinesNone
	opts := []highlight.Option{
		// the terminal renderer reads classes, never inline styles
		highlight.WithClasses(ec.UseClasses || format == FormatANSI),
		highlight.WithLineSplitting(format == FormatHTML && (numbered || !ec.MultilineSpan)),
		highlight.WithKeywordLinks(ec.KeywordLinks),
		highlight.WithLinkTarget(ec.LinkTarget),
		highlight.WithLinkStyle(ec.LinkStyle),
		highlight.WithMatchTimeout(ec.MatchTimeout),
	}
	switch ec.Strict {
	case "on":
		opts = append(opts, highlight.WithStrictMode(true))
	case "off":
		opts = append(opts, highlight.WithStrictMode(false))
	}

	engine := highlight.New(rs, opts...)
	if err := s.perms.Apply(engine.Permissions()); err != nil {
		return nil, fmt.Errorf("%w: permissions: %v", highlight.ErrConfiguration, err)
	}
	return engine, nil
}

func (s *Service) parse(ctx context.Context, engine *highlight.Engine, src string) string {
	ctx, span := s.tracer.Start(ctx, tracing.SpanParse)
	defer span.End()

	parsed := engine.Parse(src)
	if err := engine.Err(); err != nil {
		span.AddEvent(tracing.EventErrorState, trace.WithAttributes(attribute.String(tracing.AttrErrorMessage, err.Error())))
	}
	errs := engine.PatternErrors()
	for _, pe := range errs {
		span.AddEvent(tracing.EventPatternError, trace.WithAttributes(attribute.String(tracing.AttrErrorMessage, pe.Error())))
		log.WarnContext(ctx, log.CatEngine, "pattern skipped", "language", engine.RuleSet().Name, "error", pe)
	}
	span.SetAttributes(attribute.Int(tracing.AttrPatternErrors, len(errs)))
	return parsed
}

func (s *Service) format(lang string, rs *ruleset.RuleSet, format, parsed string) (string, error) {
	out := s.cfg.Output
	tabWidth := s.tabWidth(rs)
	switch format {
	case FormatHTML:
		header, err := render.ParseHeader(out.Header)
		if err != nil {
			return "", fmt.Errorf("%w: output.%v", highlight.ErrConfiguration, err)
		}
		f := render.NewFormatter(render.Options{
			Language:     lang,
			Header:       header,
			LineNumbers:  s.lineNumbers(),
			FancyEvery:   out.FancyEvery,
			StartLine:    out.StartLine,
			Classes:      s.cfg.Engine.UseClasses,
			TabWidth:     tabWidth,
			OverallStyle: out.OverallStyle,
			CodeStyle:    out.CodeStyle,
			LineStyle:    out.LineStyle,
			FancyStyle:   out.FancyStyle,
		})
		return f.Format(parsed), nil
	case FormatANSI:
		theme, err := render.NewTheme(s.cfg.Theme.RenderTheme())
		if err != nil {
			return "", fmt.Errorf("%w: theme: %v", highlight.ErrConfiguration, err)
		}
		opts := []render.TerminalOption{render.WithTabWidth(tabWidth)}
		if s.lineNumbers() != render.LinesNone {
			start := out.StartLine
			if start == 0 {
				start = 1
			}
			opts = append(opts, render.WithGutter(start))
		}
		return render.NewTerminal(s.out, theme, opts...).Render(parsed), nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", highlight.ErrConfiguration, format)
	}
}

func (s *Service) stylesheet(lang string, engine *highlight.Engine) string {
	out := s.cfg.Output
	return render.Stylesheet(engine.RuleSet(), render.StylesheetOptions{
		Language:     lang,
		Economy:      true,
		LineNumbers:  s.lineNumbers(),
		Permissions:  engine.Permissions(),
		OverallStyle: out.OverallStyle,
		CodeStyle:    out.CodeStyle,
		LineStyle:    out.LineStyle,
		FancyStyle:   out.FancyStyle,
		LinkStyle:    s.cfg.Engine.LinkStyle,
	})
}

func (s *Service) lineNumbers() render.LineNumbers {
	ln, err := render.ParseLineNumbers(s.cfg.Output.LineNumbers)
	if err != nil {
		return render.LinesNone
	}
	return ln
}

func (s *Service) tabWidth(rs *ruleset.RuleSet) int {
	if s.cfg.Engine.TabWidth > 0 {
		return s.cfg.Engine.TabWidth
	}
	return rs.TabWidth
}
