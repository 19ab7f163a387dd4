package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLogger(t *testing.T) {
	logger := Logger("github.com/vitalvas/strata/telemetry")
	require.NotNil(t, logger)

	logger.Info("emitted through the global provider")
}

func TestTracerFrom(t *testing.T) {
	t.Run("nil uses global", func(t *testing.T) {
		assert.NotNil(t, TracerFrom(nil, "test"))
	})

	t.Run("explicit provider", func(t *testing.T) {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

		_, span := TracerFrom(tp, "test").Start(context.Background(), "op")
		span.End()

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "op", spans[0].Name())
		assert.Equal(t, "test", spans[0].InstrumentationScope().Name)
	})
}

func TestMeterFrom(t *testing.T) {
	t.Run("nil uses global", func(t *testing.T) {
		assert.NotNil(t, MeterFrom(nil, "test"))
	})

	t.Run("explicit provider", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		counter, err := MeterFrom(mp, "test").Int64Counter("hits")
		require.NoError(t, err)
		counter.Add(context.Background(), 3)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		require.Len(t, rm.ScopeMetrics, 1)
		assert.Equal(t, "test", rm.ScopeMetrics[0].Scope.Name)

		sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	})
}
