package loader

import (
	"context"
	"sync"
)

// Deferred is a value that becomes available later, exactly once.
type Deferred[T any] struct {
	val  T
	err  error
	done chan struct{}
	once sync.Once
}

func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolved returns a Deferred already completed with v.
func Resolved[T any](v T) *Deferred[T] {
	d := NewDeferred[T]()
	d.Resolve(v)
	return d
}

// Rejected returns a Deferred already completed with err.
func Rejected[T any](err error) *Deferred[T] {
	d := NewDeferred[T]()
	d.Reject(err)
	return d
}

// Resolve completes d with v. It reports false if d was already complete.
func (d *Deferred[T]) Resolve(v T) bool {
	return d.complete(v, nil)
}

// Reject completes d with err. It reports false if d was already complete.
func (d *Deferred[T]) Reject(err error) bool {
	var zero T
	return d.complete(zero, err)
}

func (d *Deferred[T]) complete(v T, err error) bool {
	ok := false
	d.once.Do(func() {
		d.val, d.err = v, err
		close(d.done)
		ok = true
	})
	return ok
}

// Done is closed once d completes.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until d completes or ctx ends.
func (d *Deferred[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
