package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrContract is wrapped by ContractError.
var ErrContract = errors.New("pipeline: contract violation")

// ContractError reports a layer whose required Values keys are not provided
// by any layer upstream of it.
type ContractError struct {
	// Layer is the tag of the offending layer.
	Layer string

	// Missing lists the required keys that were not provided.
	Missing []string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("pipeline: layer %q requires %s, not provided upstream", e.Layer, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrContract.
func (e *ContractError) Unwrap() error {
	return ErrContract
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	provides   []string
	registries []*Registry
	annotation Annotation
}

// Provides declares the Values keys the caller supplies at the pipeline
// entry, so that layers requiring them pass the contract check.
func Provides(keys ...string) BuildOption {
	return func(o *buildOptions) {
		o.provides = append(o.provides, keys...)
	}
}

// WithRegistry registers every concrete route of the built pipeline in reg,
// in addition to registries introduced by Collect layers.
func WithRegistry(reg *Registry) BuildOption {
	return func(o *buildOptions) {
		o.registries = append(o.registries, reg)
	}
}

// WithAnnotation sets the annotation every route starts from.
func WithAnnotation(a Annotation) BuildOption {
	return func(o *buildOptions) {
		o.annotation = a
	}
}

// Pipeline is a built chain. Build has verified its contracts and
// propagated its annotations; Run executes it for one request.
type Pipeline[T any] struct {
	root   Layer[T]
	routes []Annotation
}

// Build walks the chain once at declaration time. It checks that every
// layer's required keys are provided upstream, folds annotations along every
// concrete route and hands each finished route to the registries in scope.
// A route is concrete when it ends in a terminal layer created by Handle.
func (c *Chain[T]) Build(opts ...BuildOption) (*Pipeline[T], error) {
	bo := &buildOptions{}
	for _, opt := range opts {
		opt(bo)
	}

	own := NewRegistry()

	st := declState{
		ann:        bo.annotation,
		provided:   make(map[string]struct{}, len(bo.provides)),
		registries: append([]*Registry{own}, bo.registries...),
		touched:    make(map[*Registry]struct{}),
	}
	for _, k := range bo.provides {
		st.provided[k] = struct{}{}
	}

	if err := c.declare(st, func(declState) error { return nil }); err != nil {
		return nil, err
	}

	for reg := range st.touched {
		reg.markBuilt(c)
	}

	return &Pipeline[T]{
		root:   c,
		routes: own.Routes(),
	}, nil
}

// MustBuild is like Build but panics on error.
func (c *Chain[T]) MustBuild(opts ...BuildOption) *Pipeline[T] {
	p, err := c.Build(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Run executes the pipeline. A request that reaches the end of the chain
// without a terminal layer yields NotMatched.
func (p *Pipeline[T]) Run(ctx context.Context, in Values) (Result[T], error) {
	return p.root.Apply(ctx, in, endOfChain[T])
}

// Apply implements the Layer interface so a pipeline can be nested.
func (p *Pipeline[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	return p.root.Apply(ctx, in, next)
}

// Routes returns the annotation of every concrete route in declaration
// order.
func (p *Pipeline[T]) Routes() []Annotation {
	out := make([]Annotation, len(p.routes))
	copy(out, p.routes)
	return out
}

// String describes the pipeline's layer graph.
func (p *Pipeline[T]) String() string {
	return tagOf(p.root)
}

func endOfChain[T any](context.Context, Values) (Result[T], error) {
	return NotMatched[T](), nil
}

// declState is what flows along the graph during Build.
type declState struct {
	ann        Annotation
	provided   map[string]struct{}
	registries []*Registry

	// chains lists the chains enclosing the current point, outermost first.
	chains []any

	// touched collects every registry written during the walk. It is shared
	// by all branches.
	touched map[*Registry]struct{}
}

func (st declState) provide(keys []string) declState {
	if len(keys) == 0 {
		return st
	}
	provided := make(map[string]struct{}, len(st.provided)+len(keys))
	for k := range st.provided {
		provided[k] = struct{}{}
	}
	for _, k := range keys {
		provided[k] = struct{}{}
	}
	st.provided = provided
	return st
}

func (st declState) missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := st.provided[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// declarer is implemented by layers that shape the build walk themselves:
// chains, alternations, terminal handlers and registry collectors.
type declarer interface {
	declare(st declState, k func(declState) error) error
}

// declareLayer walks one layer and continues with k for everything after it.
func declareLayer(l any, st declState, k func(declState) error) error {
	if d, ok := l.(declarer); ok {
		return d.declare(st, k)
	}

	st, err := checkContract(l, st)
	if err != nil {
		return err
	}

	if a, ok := l.(Annotator); ok {
		st.ann = a.Annotate(st.ann)
	}

	return k(st)
}

func checkContract(l any, st declState) (declState, error) {
	c, ok := l.(Contractor)
	if !ok {
		return st, nil
	}

	contract := c.Contract()
	if missing := st.missing(contract.Requires); len(missing) > 0 {
		return st, &ContractError{Layer: tagOf(l), Missing: missing}
	}

	return st.provide(contract.Provides), nil
}

func (c *Chain[T]) declare(st declState, k func(declState) error) error {
	chains := make([]any, len(st.chains), len(st.chains)+1)
	copy(chains, st.chains)
	st.chains = append(chains, c)

	return c.declareFrom(0, st, k)
}

func (c *Chain[T]) declareFrom(i int, st declState, k func(declState) error) error {
	if i == len(c.layers) {
		return k(st)
	}
	return declareLayer(c.layers[i], st, func(st declState) error {
		return c.declareFrom(i+1, st, k)
	})
}

func (a *alternation[T]) declare(st declState, k func(declState) error) error {
	for _, cand := range a.candidates {
		if err := cand.declare(st, k); err != nil {
			return err
		}
	}
	return nil
}

func (h *handler[T]) declare(st declState, _ func(declState) error) error {
	if _, err := checkContract(h, st); err != nil {
		return err
	}
	for _, reg := range st.registries {
		// A registry filled by an earlier Build of an enclosing chain
		// already holds this route.
		if reg.builtFrom(st.chains) {
			continue
		}
		reg.Register(st.ann)
		st.touched[reg] = struct{}{}
	}
	return nil
}

func (p *Pipeline[T]) declare(st declState, k func(declState) error) error {
	return declareLayer(p.root, st, k)
}
