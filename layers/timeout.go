package layers

import (
	"context"
	"errors"
	"time"

	"github.com/vitalvas/strata/pipeline"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not greater
// than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// ErrTimeout is the cancellation cause of a context cut short by Timeout.
var ErrTimeout = errors.New("timeout: deadline exceeded")

// TimeoutConfig configures the Timeout layer.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the rest of the pipeline.
	// Must be greater than zero.
	Duration time.Duration
}

// Timeout returns a layer that bounds the context handed downstream with a
// deadline. When the deadline passes, the context is cancelled with cause
// ErrTimeout; a Scoped layer below it closes and its spawned work observes
// the interruption. What the caller gets back is up to the handler.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func Timeout[T any](cfg TimeoutConfig) (pipeline.Layer[T], error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	duration := cfg.Duration

	return pipeline.Define(pipeline.Definition[T]{
		Tag: "timeout",
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			ctx, cancel := context.WithTimeoutCause(ctx, duration, ErrTimeout)
			defer cancel()

			return next(ctx, in)
		},
	}), nil
}
