// Package telemetry hands out named loggers, tracers and meters backed by the
// global OpenTelemetry providers.
package telemetry

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Logger returns a *slog.Logger whose records are emitted through the
// global OpenTelemetry logger provider under the given instrumentation name.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// Tracer returns a tracer from the global OpenTelemetry tracer provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TracerFrom returns a tracer from tp, or from the global provider when tp
// is nil.
func TracerFrom(tp trace.TracerProvider, name string) trace.Tracer {
	if tp == nil {
		return Tracer(name)
	}
	return tp.Tracer(name)
}

// Meter returns a meter from the global OpenTelemetry meter provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// MeterFrom returns a meter from mp, or from the global provider when mp
// is nil.
func MeterFrom(mp metric.MeterProvider, name string) metric.Meter {
	if mp == nil {
		return Meter(name)
	}
	return mp.Meter(name)
}
