package layers

import (
	"context"
	"errors"

	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/scope"
)

// ErrRequestComplete is the close reason of a scope whose request finished
// normally.
var ErrRequestComplete = errors.New("scope: request complete")

// ScopeFrom returns the request scope opened by Scoped, or nil.
func ScopeFrom(in pipeline.Values) *scope.Scope {
	s, _ := pipeline.Get[*scope.Scope](in, pipeline.KeyScope)
	return s
}

// Scoped returns a layer that opens a scope.Scope bound to the request's
// context and passes it downstream under pipeline.KeyScope. Downstream
// layers receive the scope's context.
//
// The scope is closed when the rest of the pipeline returns, whether or not
// the request was cancelled, so pending finalizers always run at request end.
func Scoped[T any]() pipeline.Layer[T] {
	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "scoped",
		Provides: []string{pipeline.KeyScope},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			s := scope.Open(ctx)
			defer s.Close(ErrRequestComplete)

			return next(s.Context(), in.With(pipeline.KeyScope, s))
		},
	})
}
