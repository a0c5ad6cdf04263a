// Package monitor delivers a channel's updates to one subscriber, keeping
// only the newest undelivered value.
package monitor

import (
	"context"
	"sync"

	"github.com/quentinmit/go-pcas/internal/server/types"
)

// Options control delivery.
type Options struct {
	// Pipeline enables flow control: values are sent only while the
	// subscriber has acknowledged room for them with Ack.
	Pipeline bool
}

type Monitor struct {
	sendValue  func(interface{})
	mu         sync.Mutex
	cancel     func()
	done       chan struct{}
	err        error
	pipeline   bool
	running    bool
	windowOpen int
	toSend     interface{}
}

// New starts watching nexter. Nothing is delivered until Start.
func New(ctx context.Context, opts Options, nexter types.Nexter, sendValue func(interface{})) *Monitor {
	ctx, cancel := context.WithCancel(ctx)
	m := &Monitor{
		pipeline:  opts.Pipeline,
		sendValue: sendValue,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		err := m.Watch(ctx, nexter)
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		close(m.done)
	}()
	return m
}

func (m *Monitor) Watch(ctx context.Context, nexter types.Nexter) error {
	for {
		// Check if context is canceled in case Next doesn't use context.
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := nexter.Next(ctx)
		if err != nil {
			return err
		}
		m.Send(ctx, value)
	}
}

func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.drain()
}

func (m *Monitor) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// Ack opens the window by nfree values.
func (m *Monitor) Ack(ctx context.Context, nfree int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowOpen += nfree
	m.drain()
}

func (m *Monitor) drain() {
	if m.running && (!m.pipeline || m.windowOpen > 0) && m.toSend != nil {
		if m.windowOpen > 0 {
			m.windowOpen--
		}
		m.sendValue(m.toSend)
		m.toSend = nil
	}
}

// Send queues value for delivery, replacing any value not yet delivered.
func (m *Monitor) Send(ctx context.Context, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toSend = value
	m.drain()
}

// Terminate stops watching and waits for the watcher to exit. Undelivered
// values are dropped.
func (m *Monitor) Terminate(ctx context.Context) error {
	m.cancel()
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toSend = nil
	return nil
}

// Done is closed once the watcher has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Err returns why the watcher exited, or nil while it is running.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
