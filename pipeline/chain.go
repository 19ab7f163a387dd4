package pipeline

import (
	"context"
	"strings"
)

// Chain is an ordered sequence of layers that behaves as a single Layer.
// Chains are immutable: every builder method returns a new Chain.
//
//	hello := pipeline.New[string](layers.Route[string](http.MethodGet, "/hello/:world")).
//		Handle(func(_ context.Context, in pipeline.Values) (string, error) {
//			return layers.Param(in, "world"), nil
//		})
type Chain[T any] struct {
	layers []Layer[T]
}

// New returns a chain of the given layers.
func New[T any](layers ...Layer[T]) *Chain[T] {
	c := &Chain[T]{layers: make([]Layer[T], 0, len(layers))}
	for _, l := range layers {
		if l == nil {
			panic("pipeline: nil layer")
		}
		c.layers = append(c.layers, l)
	}
	return c
}

// Continue returns an empty chain that forwards every request unchanged.
func Continue[T any]() *Chain[T] {
	return New[T]()
}

// With returns a new chain with layers appended.
func (c *Chain[T]) With(layers ...Layer[T]) *Chain[T] {
	return New(append(c.cloneLayers(), layers...)...)
}

// Match returns a new chain ending in an alternation of candidates.
//
// Candidates are tried in the order given, one at a time, each running to
// completion before the next starts. The first Matched result wins and no
// later candidate runs. When two candidates could both match a request the
// one declared first wins; there is no specificity ranking. A candidate that
// fails stops the alternation and its error is returned unchanged.
func (c *Chain[T]) Match(candidates ...*Chain[T]) *Chain[T] {
	return c.With(Alternation(candidates...))
}

// Handle returns a new chain terminated by fn.
func (c *Chain[T]) Handle(fn HandlerFunc[T], requires ...string) *Chain[T] {
	return c.With(Handle(fn, requires...))
}

// Len returns the number of layers in the chain.
func (c *Chain[T]) Len() int {
	return len(c.layers)
}

// Apply implements the Layer interface.
func (c *Chain[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	return c.applyFrom(0, ctx, in, next)
}

func (c *Chain[T]) applyFrom(i int, ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	if i == len(c.layers) {
		return next(ctx, in)
	}
	return c.layers[i].Apply(ctx, in, func(ctx context.Context, in Values) (Result[T], error) {
		return c.applyFrom(i+1, ctx, in, next)
	})
}

// String describes the chain with layer tags joined by " -> ".
func (c *Chain[T]) String() string {
	if len(c.layers) == 0 {
		return "continue"
	}
	tags := make([]string, len(c.layers))
	for i, l := range c.layers {
		tags[i] = tagOf(l)
	}
	return strings.Join(tags, " -> ")
}

func (c *Chain[T]) cloneLayers() []Layer[T] {
	out := make([]Layer[T], len(c.layers))
	copy(out, c.layers)
	return out
}

// Alternation returns a layer that tries each candidate in declared order
// and returns the first Matched result. See Chain.Match.
func Alternation[T any](candidates ...*Chain[T]) Layer[T] {
	for _, cand := range candidates {
		if cand == nil {
			panic("pipeline: nil alternation candidate")
		}
	}
	cands := make([]*Chain[T], len(candidates))
	copy(cands, candidates)
	return &alternation[T]{candidates: cands}
}

type alternation[T any] struct {
	candidates []*Chain[T]
}

func (a *alternation[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	for _, cand := range a.candidates {
		res, err := cand.Apply(ctx, in, next)
		if err != nil {
			return NotMatched[T](), err
		}
		if res.IsMatched() {
			return res, nil
		}
	}
	return NotMatched[T](), nil
}

func (a *alternation[T]) String() string {
	tags := make([]string, len(a.candidates))
	for i, cand := range a.candidates {
		tags[i] = cand.String()
	}
	return "(" + strings.Join(tags, " | ") + ")"
}
