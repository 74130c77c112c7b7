package telemetry

import (
	"context"
	"testing"

	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewTracerProviderDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	tp, err := NewTracerProvider(lc, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	_, ok := tp.(noop.TracerProvider)
	assert.True(t, ok)
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	_, err := newExporter(context.Background(), "carrier-pigeon", "")
	assert.Error(t, err)
}

func TestCorrelationSpanProcessor(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&correlationSpanProcessor{}),
		sdktrace.WithSpanProcessor(recorder),
	)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-7")
	_, span := tp.Tracer("test").Start(ctx, "op")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	var found bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "correlation_id" {
			found = true
			assert.Equal(t, "cid-7", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}
