// Package async provides the future type every network operation in the SDK
// can be consumed through.
//
// Each blocking SDK method (Create, Run, Remove, GetHistory, ...) has an
// ...Async twin that returns a *Future. A future can be awaited, chained with
// Then, joined with All, or handed a node-style completion callback with
// Nodeify. All paths observe the same value and the same error.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual result of an operation.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Run starts fn on its own goroutine and returns a future for its result.
// A panic inside fn settles the future with an error.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.settle(zero, fmt.Errorf("async: operation panicked: %v", r))
				return
			}
			f.settle(value, err)
		}()
		value, err = fn(ctx)
	}()
	return f
}

// Resolve returns a future already settled with v.
func Resolve[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Reject returns a future already settled with err.
func Reject[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.value, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future settles.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await blocks until the future settles or ctx is done, whichever comes
// first. Giving up on a future does not stop the operation behind it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Nodeify registers a completion callback and returns f so it can still be
// chained. Callbacks run once, in registration order, on the goroutine that
// settles the future. If f has already settled, cb runs immediately on the
// calling goroutine.
func (f *Future[T]) Nodeify(cb func(T, error)) *Future[T] {
	if cb == nil {
		return f
	}
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return f
	}
	v, err := f.value, f.err
	f.mu.Unlock()

	cb(v, err)
	return f
}

// Then returns a future for fn applied to f's value. fn is skipped and the
// error passed through when f fails.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := newFuture[U]()
	f.Nodeify(func(v T, err error) {
		if err != nil {
			var zero U
			next.settle(zero, err)
			return
		}
		go func() {
			var (
				u    U
				uerr error
			)
			defer func() {
				if r := recover(); r != nil {
					var zero U
					next.settle(zero, fmt.Errorf("async: continuation panicked: %v", r))
					return
				}
				next.settle(u, uerr)
			}()
			u, uerr = fn(v)
		}()
	})
	return next
}

// All settles with every value in order once all futures succeed, or with
// the first error observed.
func All[T any](futures ...*Future[T]) *Future[[]T] {
	joined := newFuture[[]T]()
	if len(futures) == 0 {
		joined.settle([]T{}, nil)
		return joined
	}

	var (
		mu        sync.Mutex
		values    = make([]T, len(futures))
		remaining = len(futures)
	)
	for i, f := range futures {
		f.Nodeify(func(v T, err error) {
			if err != nil {
				joined.settle(nil, err)
				return
			}
			mu.Lock()
			values[i] = v
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				joined.settle(values, nil)
			}
		})
	}
	return joined
}
