package bridge

import (
	"context"
	"errors"
)

// ErrDispatcherClosed is returned by a dispatcher that has stopped running.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher runs driver calls. Dispatch returns once fn has returned.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// Direct calls fn on the calling goroutine.
type Direct struct{}

func (Direct) Dispatch(fn func()) error {
	fn()
	return nil
}

type call struct {
	fn   func()
	done chan struct{}
}

// SerialDispatcher runs every call on one goroutine, in arrival order.
// Callers block while the queue is full and until their call completes.
type SerialDispatcher struct {
	queue   chan call
	stopped chan struct{}
}

// NewSerialDispatcher starts a dispatcher with room for depth pending calls.
// It stops when ctx is done; calls still queued then are not run.
func NewSerialDispatcher(ctx context.Context, depth int) *SerialDispatcher {
	if depth < 0 {
		depth = 0
	}
	d := &SerialDispatcher{
		queue:   make(chan call, depth),
		stopped: make(chan struct{}),
	}
	go d.run(ctx)
	return d
}

func (d *SerialDispatcher) run(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-d.queue:
			c.fn()
			close(c.done)
		}
	}
}

func (d *SerialDispatcher) Dispatch(fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case d.queue <- c:
	case <-d.stopped:
		return ErrDispatcherClosed
	}
	select {
	case <-c.done:
		return nil
	case <-d.stopped:
		select {
		case <-c.done:
			return nil
		default:
			return ErrDispatcherClosed
		}
	}
}

// Done is closed once the dispatcher has stopped.
func (d *SerialDispatcher) Done() <-chan struct{} {
	return d.stopped
}
