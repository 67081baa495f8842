package dealAuth

import "context"

// Future is the pending result of an operation started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on its own goroutine so callers such as UI loops never block on
// a remote round trip.
//
//	f := dealAuth.Go(ctx, func(ctx context.Context) (dealAuth.User, error) {
//		return mgr.SignIn(ctx, email, password, dealAuth.RoleCustomer)
//	})
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends. Ending ctx only
// stops the wait; the operation keeps its own context.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
