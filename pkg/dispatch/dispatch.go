// Package dispatch marshals work onto a binding context: the execution
// context a data-bound view requires its mutations and change notifications
// to be delivered on. The paging controller receives a Dispatcher at
// construction instead of reaching for any global UI dispatcher.
package dispatch

import (
	"context"
	"errors"
)

// ErrStopped is returned by Invoke when the dispatcher no longer accepts
// or executes work.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher runs functions on the binding context.
//
// Invoke returns after fn has completed there, so state mutated by fn is
// visible to the caller afterwards. Implementations execute functions in
// Invoke order. Once fn has been accepted, Invoke waits for its completion
// even if ctx expires; ctx only bounds the wait for acceptance.
type Dispatcher interface {
	Invoke(ctx context.Context, fn func()) error
}

// Immediate runs functions inline on the calling goroutine. It suits hosts
// without thread-affinity requirements, and tests.
type Immediate struct{}

// Invoke runs fn inline. The only failure mode is ctx being done on entry.
func (Immediate) Invoke(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}
