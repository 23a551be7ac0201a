package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.With("component", "checkout").InfoContext(ctx, "hello")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
	assert.Equal(t, "checkout", line["component"])
}

func TestLogger_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "debug").DebugContext(context.Background(), "plain")

	assert.Contains(t, buf.String(), `"msg":"plain"`)
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "warn").Info("dropped")
	assert.Empty(t, buf.String())
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4317", stripScheme("http://collector:4317"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}

func TestSetupTracer_WithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracer(context.Background(), "lotmarket-test", "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
