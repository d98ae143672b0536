package client

import (
	"context"
	"sync/atomic"

	"github.com/modbuscore/gomodbus/common"
)

// promiseResult carries either a value or an error, never both.
type promiseResult[T any] struct {
	value T
	err   error
}

// Promise is the one-shot result channel a submitted request's caller waits
// on. rodbus drops an unfulfilled promise to fail it when its request is
// abandoned; Go has no destructors to hook that moment, so the channel task
// settles every promise explicitly on each path that consumes a request,
// and FailIfUnresolved is available for code that wants to guarantee
// resolution under a defer.
type Promise[T any] struct {
	ch       chan promiseResult[T]
	resolved atomic.Bool
}

// NewPromise constructs an unresolved promise with room for exactly one result.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{ch: make(chan promiseResult[T], 1)}
}

// Resolve fulfills the promise with a value. Only the first call has effect.
func (p *Promise[T]) Resolve(value T) {
	if p.resolved.CompareAndSwap(false, true) {
		p.ch <- promiseResult[T]{value: value}
	}
}

// Reject fails the promise with an error. Only the first call has effect.
func (p *Promise[T]) Reject(err error) {
	if p.resolved.CompareAndSwap(false, true) {
		p.ch <- promiseResult[T]{err: err}
	}
}

// FailIfUnresolved rejects the promise with err unless it has already been
// settled. Call it from a defer around the code path that owns resolving
// the promise, so every exit (including a panic recovery or an early
// return) still produces exactly one result.
func (p *Promise[T]) FailIfUnresolved(err error) {
	p.Reject(err)
}

// Wait blocks for the result or for ctx to be done, whichever comes first.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-p.ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, common.WrapIo(ctx.Err())
	}
}
