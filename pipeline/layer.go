package pipeline

import (
	"context"
	"fmt"
)

// Next is the continuation handed to a layer. It runs the rest of the
// pipeline with the (possibly enriched) Values.
type Next[T any] func(ctx context.Context, in Values) (Result[T], error)

// Layer is the atomic composable unit of a pipeline.
//
// Apply may return NotMatched without calling next to decline, call next
// with new Values and optionally transform what comes back, or return its
// own Matched result without calling next at all. A non-nil error is a
// fault: it is never treated as NotMatched and stops any enclosing
// alternation.
type Layer[T any] interface {
	Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error)
}

// LayerFunc adapts an ordinary function to the Layer interface.
type LayerFunc[T any] func(ctx context.Context, in Values, next Next[T]) (Result[T], error)

// Apply implements the Layer interface.
func (f LayerFunc[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	return f(ctx, in, next)
}

// Annotator is implemented by layers that contribute route metadata at
// build time.
type Annotator interface {
	Annotate(Annotation) Annotation
}

// Contract declares which Values keys a layer reads and which it adds.
type Contract struct {
	Requires []string
	Provides []string
}

// Contractor is implemented by layers that declare a Contract. Build
// verifies that every required key is provided upstream.
type Contractor interface {
	Contract() Contract
}

// Definition describes a layer as a plain struct literal.
type Definition[T any] struct {
	// Tag names the layer in chain descriptions. Defaults to "layer".
	Tag string

	// Requires lists the Values keys the layer reads.
	Requires []string

	// Provides lists the Values keys the layer adds.
	Provides []string

	// Annotate optionally transforms the route annotation at build time.
	Annotate func(Annotation) Annotation

	// Apply is the request-time behaviour. When nil the layer forwards
	// to next unchanged.
	Apply LayerFunc[T]
}

// Define builds a Layer from a Definition.
func Define[T any](def Definition[T]) Layer[T] {
	return &defined[T]{def: def}
}

type defined[T any] struct {
	def Definition[T]
}

func (d *defined[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	if d.def.Apply == nil {
		return next(ctx, in)
	}
	return d.def.Apply(ctx, in, next)
}

func (d *defined[T]) Annotate(a Annotation) Annotation {
	if d.def.Annotate == nil {
		return a
	}
	return d.def.Annotate(a)
}

func (d *defined[T]) Contract() Contract {
	return Contract{Requires: d.def.Requires, Provides: d.def.Provides}
}

func (d *defined[T]) String() string {
	if d.def.Tag == "" {
		return "layer"
	}
	return d.def.Tag
}

// Annotate returns a layer that only contributes annotation fields and
// forwards every request unchanged.
func Annotate[T any](tag string, kv map[string]any) Layer[T] {
	return Define(Definition[T]{
		Tag: tag,
		Annotate: func(a Annotation) Annotation {
			return a.Merge(kv)
		},
	})
}

// HandlerFunc produces the response for a request that reached the end of
// a route.
type HandlerFunc[T any] func(ctx context.Context, in Values) (T, error)

// Handle returns a terminal layer. It never calls next and always returns
// Matched with the handler's value, unless the handler fails.
//
// Each terminal layer marks the end of one concrete route for annotation
// propagation. The optional requires keys take part in the Build contract
// check.
func Handle[T any](fn HandlerFunc[T], requires ...string) Layer[T] {
	return &handler[T]{
		fn: func(ctx context.Context, in Values) (Result[T], error) {
			v, err := fn(ctx, in)
			if err != nil {
				return NotMatched[T](), err
			}
			return Matched(v), nil
		},
		requires: requires,
	}
}

// HandleResult is like Handle but lets the handler decline by returning
// NotMatched.
func HandleResult[T any](fn func(ctx context.Context, in Values) (Result[T], error), requires ...string) Layer[T] {
	return &handler[T]{fn: fn, requires: requires}
}

type handler[T any] struct {
	fn       func(ctx context.Context, in Values) (Result[T], error)
	requires []string
}

func (h *handler[T]) Apply(ctx context.Context, in Values, _ Next[T]) (Result[T], error) {
	return h.fn(ctx, in)
}

func (h *handler[T]) Contract() Contract {
	return Contract{Requires: h.requires}
}

func (h *handler[T]) String() string {
	return "handler"
}

// Compose returns a layer that runs a and then b, with b as the
// continuation a forwards to. Compose is associative.
func Compose[T any](a, b Layer[T]) Layer[T] {
	return New(a, b)
}

// tagOf returns the description of a layer used in chain tags.
func tagOf(l any) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return "layer"
}
