package layers

import (
	"context"

	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vitalvas/strata/layers"

// TraceConfig configures the Trace layer.
type TraceConfig struct {
	// Name is the span name. Defaults to "pipeline".
	Name string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider
}

// Trace returns a layer that wraps the rest of the pipeline in a span. The
// span records whether the request matched and any fault returned.
func Trace[T any](cfg TraceConfig) pipeline.Layer[T] {
	name := cfg.Name
	if name == "" {
		name = "pipeline"
	}

	tracer := telemetry.TracerFrom(cfg.TracerProvider, instrumentationName)

	return pipeline.Define(pipeline.Definition[T]{
		Tag: "trace(" + name + ")",
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			spanCtx, span := tracer.Start(ctx, name, trace.WithAttributes(
				attribute.String("http.request.method", in.String(pipeline.KeyMethod)),
				attribute.String("url.path", in.String(pipeline.KeyPath)),
			))
			defer span.End()

			res, err := next(spanCtx, in)
			span.SetAttributes(attribute.Bool("strata.matched", res.IsMatched()))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return res, err
		},
	})
}
