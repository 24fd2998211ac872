package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrLanguage      = "highlight.language"
	AttrSourceBytes   = "highlight.source_bytes"
	AttrOutputBytes   = "highlight.output_bytes"
	AttrFormat        = "highlight.format"
	AttrPatternErrors = "highlight.pattern_errors"
	AttrCacheTTL      = "repository.cache_ttl"

	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanHighlight = "highlight"
	SpanLookup    = "repository.lookup"
	SpanParse     = "engine.parse"
	SpanFormat    = "render.format"
)

// Event names.
const (
	EventPatternError = "pattern.error"
	EventErrorState   = "engine.error_state"
)

// Run wraps fn in a span. A returned error is recorded and sets the span
// status; success sets it to Ok.
func Run[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
	defer span.End()

	v, err := fn(ctx)
	if err != nil {
		RecordError(span, err)
		return v, err
	}
	span.SetStatus(codes.Ok, "")
	return v, nil
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}
