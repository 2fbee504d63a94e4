package dispatch

import (
	"context"
	"sync"
)

// call is one unit of work queued on a Serial dispatcher.
type call struct {
	fn   func()
	done chan struct{}
}

// Serial executes all dispatched functions on a single long-lived goroutine,
// modeling a UI or binding thread. Functions run in Invoke order.
//
// Lifecycle: NewSerial → Start → Invoke... → Stop. Invoke before Start
// blocks until the loop runs. Invoke must not be called from inside a
// dispatched function: the loop cannot service a nested Invoke and the
// caller would deadlock.
type Serial struct {
	calls chan call

	quit   chan struct{} // closed by Stop
	exited chan struct{} // closed when the loop returns

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSerial creates a Serial dispatcher whose queue holds up to queueSize
// pending calls; callers of Invoke block once the queue is full.
func NewSerial(queueSize int) *Serial {
	if queueSize < 0 {
		queueSize = 0
	}
	return &Serial{
		calls:  make(chan call, queueSize),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Start launches the dispatch loop. Subsequent calls are no-ops.
func (s *Serial) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop shuts the dispatcher down. Calls already accepted are drained and
// executed; afterwards Invoke fails with ErrStopped. Stop waits for the
// loop to exit or for ctx to expire.
func (s *Serial) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.quit)
	})

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invoke queues fn for execution on the dispatch goroutine and blocks until
// it has run. It returns ErrStopped if the dispatcher shut down before fn
// could execute, or ctx.Err() if ctx is done before fn was accepted.
func (s *Serial) Invoke(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}

	select {
	case s.calls <- c:
	case <-s.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Accepted: wait for execution. The drain in loop guarantees done is
	// closed for every accepted call unless the loop exited first.
	select {
	case <-c.done:
		return nil
	case <-s.exited:
		select {
		case <-c.done:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (s *Serial) loop() {
	defer close(s.exited)

	for {
		select {
		case c := <-s.calls:
			c.fn()
			close(c.done)
		case <-s.quit:
			// Drain calls accepted before or during shutdown.
			for {
				select {
				case c := <-s.calls:
					c.fn()
					close(c.done)
				default:
					return
				}
			}
		}
	}
}
