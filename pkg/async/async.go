// Package async runs functions on their own goroutines and collects their
// results through typed futures.
package async

import (
	"context"
	"errors"
	"fmt"
)

var ErrPanic = errors.New("async.panic")

// Future is the pending result of a function started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn on a new goroutine. A panic inside fn is recovered and
// reported as an error wrapping ErrPanic. When ctx is already done fn is not
// called at all.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = errors.Join(ErrPanic, fmt.Errorf("%v", r))
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.value, f.err = fn(ctx)
	}()

	return f
}

// Done is closed once the function has returned.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the function returns or ctx is done. A result that is
// already available is returned even when ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result holds the outcome of one future.
type Result[T any] struct {
	Value T
	Err   error
}

// Settle waits for every future and returns their outcomes in order. It
// never stops at the first failure. Futures that finished before ctx was done
// keep their results.
func Settle[T any](ctx context.Context, futures ...*Future[T]) []Result[T] {
	out := make([]Result[T], len(futures))
	for i, f := range futures {
		out[i].Value, out[i].Err = f.Await(ctx)
	}
	return out
}
