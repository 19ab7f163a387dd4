/*
Package scope provides a cancellation-aware lifetime for long-running request
work.

A Scope is opened from a context that stands for an external abort signal.
When the signal fires, or Close is called, the scope moves from Open to
Closed exactly once: its context is cancelled and its finalizers run in
reverse registration order.

	s := scope.Open(r.Context())
	defer s.Close(nil)

	out := scope.Spawn(s, func(ctx context.Context) (string, error) {
		if err := scope.Sleep(ctx, 100*time.Millisecond); err != nil {
			return "", err
		}
		s.AddFinalizer(func(error) { release() })
		return "done", nil
	})

	switch out.Status {
	case scope.Completed:
	case scope.Faulted:
	case scope.Interrupted:
	}

Interruption is cooperative. Spawned work only notices a closed scope where
it waits on its context, for example inside Sleep. Code that never reaches
such a point before the scope closes never registers its finalizers, while a
finalizer added after close runs immediately.
*/
package scope
