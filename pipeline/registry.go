package pipeline

import (
	"context"
	"sync"
)

// Registry collects the annotation of every concrete route below the point
// where it is introduced into a chain. A Registry belongs to whoever created
// it; independently built pipelines only share one if handed the same
// pointer.
//
// Routes are written while a chain is built and read afterwards, typically
// by an introspection endpoint.
type Registry struct {
	mu     sync.RWMutex
	routes []Annotation

	// built holds the chains whose Build wrote into the registry.
	built map[any]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register records one route.
func (r *Registry) Register(a Annotation) {
	r.mu.Lock()
	r.routes = append(r.routes, a)
	r.mu.Unlock()
}

// Routes returns a snapshot of the registered routes in registration order.
func (r *Registry) Routes() []Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Annotation, len(r.routes))
	copy(out, r.routes)
	return out
}

func (r *Registry) markBuilt(chain any) {
	r.mu.Lock()
	if r.built == nil {
		r.built = make(map[any]struct{})
	}
	r.built[chain] = struct{}{}
	r.mu.Unlock()
}

// builtFrom reports whether any of chains has already been built into r.
func (r *Registry) builtFrom(chains []any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range chains {
		if _, ok := r.built[c]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Each calls fn for every registered route until fn returns false.
func (r *Registry) Each(fn func(Annotation) bool) {
	for _, a := range r.Routes() {
		if !fn(a) {
			return
		}
	}
}

// Collect returns a layer that introduces reg into the chain. At request
// time it forwards unchanged; at build time every concrete route declared
// after it, including routes inside nested chains and alternations, is
// registered in reg exactly once. Building the same chain again, or nesting
// an already built pipeline in a larger chain, does not register its routes
// a second time.
func Collect[T any](reg *Registry) Layer[T] {
	if reg == nil {
		panic("pipeline: nil registry")
	}
	return &collector[T]{reg: reg}
}

type collector[T any] struct {
	reg *Registry
}

func (c *collector[T]) Apply(ctx context.Context, in Values, next Next[T]) (Result[T], error) {
	return next(ctx, in)
}

func (c *collector[T]) String() string {
	return "collect"
}

func (c *collector[T]) declare(st declState, k func(declState) error) error {
	for _, reg := range st.registries {
		if reg == c.reg {
			return k(st)
		}
	}

	regs := make([]*Registry, len(st.registries), len(st.registries)+1)
	copy(regs, st.registries)
	st.registries = append(regs, c.reg)

	return k(st)
}
