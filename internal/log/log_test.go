package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zjrosen/gensynth/internal/pubsub"
)

func TestInitWriter_FormatsEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	Info(CatRepo, "rule sets reloaded", "count", 4, "orphan")
	ErrorErr(CatConfig, "save failed", errors.New("disk full"))

	out := buf.String()
	require.Contains(t, out, "[INFO] [repo] rule sets reloaded count=4 orphan=<missing>\n")
	require.Contains(t, out, "[ERROR] [config] save failed error=disk full\n")
}

func TestSetMinLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetMinLevel(LevelWarn)
	Debug(CatEngine, "hidden")
	Warn(CatEngine, "shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	SetEnabled(false)
	Error(CatEngine, "muted")
	require.NotContains(t, buf.String(), "muted")
}

func TestSubscribe(t *testing.T) {
	require.Nil(t, Subscribe(context.Background()))

	InitWriter(&bytes.Buffer{})
	t.Cleanup(func() { defaultLogger = nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := Subscribe(ctx)

	Warn(CatWatcher, "watch failed")
	select {
	case ev := <-ch:
		require.Equal(t, pubsub.LogEntryEvent, ev.Type)
		require.Contains(t, ev.Payload, "[WARN] [watcher] watch failed")
	case <-time.After(time.Second):
		t.Fatal("no log event")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorContains(t, err, "unknown log level")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatEntry(t *testing.T) {
	ts := time.Date(2025, 12, 6, 10, 45, 0, 0, time.UTC)
	got := formatEntry(ts, LevelWarn, CatEngine, "pattern skipped", []any{"group", 3})
	require.Equal(t, "2025-12-06T10:45:00 [WARN] [engine] pattern skipped group=3\n", got)
}

func TestWarnContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	WarnContext(context.Background(), CatEngine, "no span")
	require.NotContains(t, buf.String(), "trace_id")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "parse")
	defer span.End()

	WarnContext(ctx, CatEngine, "with span", "group", 1)
	require.Contains(t, buf.String(), "with span group=1 trace_id="+span.SpanContext().TraceID().String())
	require.Contains(t, buf.String(), "span_id="+span.SpanContext().SpanID().String())
}
