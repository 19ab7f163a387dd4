package scope

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc"
)

// ErrClosed is the close reason used when Close is called with a nil reason.
var ErrClosed = errors.New("scope: closed")

// State is the lifecycle state of a Scope. A scope only ever moves from
// StateOpen to StateClosed.
type State int

const (
	StateOpen State = iota
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == StateClosed {
		return "closed"
	}
	return "open"
}

// Finalizer is a cleanup action. It receives the reason the scope closed.
type Finalizer func(reason error)

// Scope is a cancellation-aware lifetime bound to an external signal. It
// owns the context handed to spawned work and a list of finalizers that run
// in reverse registration order, each exactly once, when the scope closes.
//
// All methods are safe for concurrent use.
type Scope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	stop   func() bool

	mu         sync.Mutex
	closed     bool
	reason     error
	finalizers []Finalizer

	children conc.WaitGroup
}

// Open returns a new open scope bound to parent. When parent is cancelled
// the scope closes with context.Cause(parent) as its reason.
func Open(parent context.Context) *Scope {
	ctx, cancel := context.WithCancelCause(parent)

	s := &Scope{
		ctx:    ctx,
		cancel: cancel,
	}

	stop := context.AfterFunc(parent, func() {
		s.Close(context.Cause(parent))
	})

	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()

	return s
}

// Context returns the scope's context. It is cancelled when the scope
// closes, with the close reason as its cause.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Done returns a channel that is closed when the scope closes.
func (s *Scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

// State returns the current state.
func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StateClosed
	}
	return StateOpen
}

// Closed reports whether the scope has closed.
func (s *Scope) Closed() bool {
	return s.State() == StateClosed
}

// Err returns the close reason, or nil while the scope is open.
func (s *Scope) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// cause returns the close reason, falling back to the context cause while
// a close triggered by the parent is still in flight.
func (s *Scope) cause() error {
	if err := s.Err(); err != nil {
		return err
	}
	return context.Cause(s.ctx)
}

// AddFinalizer registers f to run when the scope closes. If the scope is
// already closed, f runs immediately on the calling goroutine.
func (s *Scope) AddFinalizer(f Finalizer) {
	if f == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		reason := s.reason
		s.mu.Unlock()
		f(reason)
		return
	}
	s.finalizers = append(s.finalizers, f)
	s.mu.Unlock()
}

// Close closes the scope with the given reason, cancels its context and
// runs the registered finalizers in reverse order. Only the first call has
// any effect; it reports whether this call closed the scope.
func (s *Scope) Close(reason error) bool {
	if reason == nil {
		reason = ErrClosed
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.reason = reason
	finalizers := s.finalizers
	s.finalizers = nil
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.cancel(reason)

	for i := len(finalizers) - 1; i >= 0; i-- {
		finalizers[i](reason)
	}

	return true
}

// Wait blocks until every computation started with Spawn has returned.
// Interrupted work keeps running until it reaches its next suspension
// point, so Wait may return after Spawn does.
func (s *Scope) Wait() {
	s.children.Wait()
}
