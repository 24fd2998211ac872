package tracing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, "file", cfg.Exporter)
	require.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "traces.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: "file", FilePath: path})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, err = Run(context.Background(), p.Tracer(), SpanHighlight, func(context.Context) (int, error) {
		return 1, nil
	}, attribute.String(AttrLanguage, "c"))
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	require.Equal(t, SpanHighlight, rec.Name)
	require.Equal(t, "OK", rec.Status)
	require.Equal(t, "c", rec.Attributes[AttrLanguage])
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path required")

	_, err = NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter type")
}

func TestNewProvider_NoExporter(t *testing.T) {
	p, err := NewProvider(Config{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	_, span := p.Tracer().Start(context.Background(), "x")
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestRun_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	boom := errors.New("boom")

	_, err := Run(context.Background(), tp.Tracer("test"), SpanLookup, func(context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1, "RecordError adds an exception event")
}

func TestRun_NestsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("test")

	_, err := Run(context.Background(), tracer, SpanHighlight, func(ctx context.Context) (int, error) {
		return Run(ctx, tracer, SpanParse, func(context.Context) (int, error) { return 0, nil })
	})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, SpanParse, spans[0].Name())
	require.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestFileExporter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"existing":true}`+"\n"), 0o644))

	e, err := NewFileExporter(path)
	require.NoError(t, err)
	stub := tracetest.SpanStub{
		Name:       "s",
		StartTime:  time.Now(),
		EndTime:    time.Now().Add(5 * time.Millisecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "bad"},
		Attributes: []attribute.KeyValue{attribute.Int(AttrSourceBytes, 42)},
		Events:     []sdktrace.Event{{Name: EventPatternError, Time: time.Now()}},
	}
	require.NoError(t, e.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, e.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2)

	var rec SpanRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	require.Equal(t, "ERROR", rec.Status)
	require.Equal(t, "bad", rec.StatusMsg)
	require.Equal(t, float64(42), rec.Attributes[AttrSourceBytes])
	require.Equal(t, []string{EventPatternError}, rec.Events)
}

func TestFileExporter_AfterShutdown(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriterExporter(&buf)
	require.NoError(t, e.Shutdown(context.Background()))
	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, e.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.Zero(t, buf.Len())
}
