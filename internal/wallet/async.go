package wallet

import "context"

// Result carries the outcome of an Async call.
type Result[T any] struct {
	Value T
	Err   error
}

// Async runs fn on its own goroutine and delivers its outcome on the
// returned channel, which receives exactly one value. It is the boundary a
// UI thread uses to keep key derivation and disk access off its loop:
//
//	ch := wallet.Async(ctx, func(ctx context.Context) (*keys.Session, error) {
//		return w.Unlock(ctx, pin)
//	})
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := fn(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
