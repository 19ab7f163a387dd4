package scope

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Status is the terminal state of spawned work.
type Status int

const (
	// Completed means the work returned a value.
	Completed Status = iota + 1
	// Faulted means the work returned an error or panicked.
	Faulted
	// Interrupted means the scope closed before the work finished.
	Interrupted
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Faulted:
		return "faulted"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is the result of Spawn. Exactly one of the three statuses is
// reported: Value is set for Completed, Err for Faulted and Interrupted.
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Completed reports whether the work completed.
func (o Outcome[T]) Completed() bool { return o.Status == Completed }

// Faulted reports whether the work failed.
func (o Outcome[T]) Faulted() bool { return o.Status == Faulted }

// Interrupted reports whether the work was interrupted.
func (o Outcome[T]) Interrupted() bool { return o.Status == Interrupted }

// Work is a computation run inside a scope. It should observe ctx at its
// suspension points; interruption is cooperative.
type Work[T any] func(ctx context.Context) (T, error)

// Spawn runs work as a child of s and waits for either the work to finish
// or the scope to close, whichever comes first.
//
// If the scope closes first the outcome is Interrupted and Spawn returns
// right away; the work keeps running until it next observes its context.
// Work that returns an error after observing the closed scope is also
// reported as Interrupted. A panic inside work is reported as Faulted.
func Spawn[T any](s *Scope, work Work[T]) Outcome[T] {
	if s.ctx.Err() != nil {
		return Outcome[T]{Status: Interrupted, Err: s.cause()}
	}

	done := make(chan Outcome[T], 1)

	s.children.Go(func() {
		var (
			value T
			err   error
		)

		var pc panics.Catcher
		pc.Try(func() {
			value, err = work(s.ctx)
		})

		if r := pc.Recovered(); r != nil {
			done <- Outcome[T]{Status: Faulted, Err: r.AsError()}
			return
		}
		if err != nil {
			done <- Outcome[T]{Status: Faulted, Err: err}
			return
		}
		done <- Outcome[T]{Status: Completed, Value: value}
	})

	select {
	case out := <-done:
		if out.Status == Faulted && s.ctx.Err() != nil {
			return Outcome[T]{Status: Interrupted, Err: s.cause()}
		}
		return out
	case <-s.Done():
		return Outcome[T]{Status: Interrupted, Err: s.cause()}
	}
}

// Sleep pauses for d or until ctx is done. It returns ctx's cause when the
// sleep was cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
