package paramlib

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/internal/server/types"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

// DefaultMonitorMask selects the events a monitor created without an
// explicit mask receives.
const DefaultMonitorMask = pvdata.EventValue | pvdata.EventAlarm

// subscription holds the newest update not yet taken by its reader.
type subscription struct {
	ctx  context.Context
	mask pvdata.EventMask

	mu      sync.Mutex
	pending *pvdata.Update
	ready   chan struct{}
}

func newSubscription(ctx context.Context, mask pvdata.EventMask) *subscription {
	return &subscription{ctx: ctx, mask: mask, ready: make(chan struct{}, 1)}
}

// offer replaces any pending update with u without blocking.
func (s *subscription) offer(u *pvdata.Update) {
	s.mu.Lock()
	s.pending = u
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *subscription) Next(ctx context.Context) (interface{}, error) {
	for {
		s.mu.Lock()
		u := s.pending
		s.pending = nil
		s.mu.Unlock()
		if u != nil {
			return u, nil
		}
		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		}
	}
}

// channel is the client view of one PV. Requests run on the serve loop.
type channel struct {
	l *Layer
	r *record
}

func (c *channel) Name() string {
	return c.r.name
}

// ChannelGet returns a *pvdata.Update with the PV's current value.
//
// A non-soft, unscanned PV with a read callback is read from the host on
// every get, without touching the parameter library. If the host has nothing
// new the stored value is returned.
func (c *channel) ChannelGet(ctx context.Context) (interface{}, error) {
	var (
		u   *pvdata.Update
		err error
	)
	if serr := c.l.serve(ctx, func() { u, err = c.get(ctx) }); serr != nil {
		return nil, serr
	}
	return u, err
}

func (c *channel) get(ctx context.Context) (*pvdata.Update, error) {
	r := c.r
	read := c.l.readCallback()
	if r.scanned() || r.soft || read == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.snapshotLocked(r.value, 0)
	}

	buf, release := c.l.alloc.alloc(len(r.value))
	sv := native.NewOwned(r.tag, r.count, buf, release)
	defer sv.Release()
	updated, err := c.l.callRead(r, sv)
	if err != nil {
		ctxlog.L(ctx).WithError(err).Warn("read for client get failed")
		return nil, fmt.Errorf("%s: %w", r.name, ErrUndefined)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !updated {
		return r.snapshotLocked(r.value, 0)
	}
	return r.snapshotLocked(sv.Buffer, 0)
}

// ChannelPut writes value to the PV as a client would. Non-soft PVs pass the
// value to the write callback first; if it fails the PV goes into
// WRITE/INVALID alarm and keeps its old value.
func (c *channel) ChannelPut(ctx context.Context, value interface{}) error {
	r := c.r
	values, err := pvdata.Sequence(value)
	if err != nil {
		return err
	}
	if len(values) != r.count {
		return &pvdata.ProtocolMismatchError{What: "element count", Got: len(values), Want: r.count}
	}
	buf, err := pvdata.Encode(r.tag, values)
	if err != nil {
		return err
	}
	var perr error
	if err := c.l.serve(ctx, func() { perr = c.put(ctx, buf) }); err != nil {
		return err
	}
	return perr
}

func (c *channel) put(ctx context.Context, buf []byte) error {
	r := c.r
	l := c.l
	if write := l.writeCallback(); !r.soft && write != nil {
		sv := &native.SimpleValue{Type: r.tag, Count: r.count, Buffer: buf}
		if err := l.callWrite(r, sv); err != nil {
			ctxlog.L(ctx).WithError(err).Warn("write callback failed")
			r.mu.Lock()
			defer r.mu.Unlock()
			r.setStatusLocked(pvdata.AlarmWrite, pvdata.SeverityInvalid)
			if !r.scanned() {
				return r.postLocked()
			}
			return nil
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := l.storeLocked(r, buf); err != nil {
		return err
	}
	if r.flag && !r.scanned() {
		return r.postLocked()
	}
	return nil
}

// CreateChannelMonitor subscribes to the PV with DefaultMonitorMask. The
// subscription ends when ctx is done.
func (c *channel) CreateChannelMonitor(ctx context.Context) (types.Nexter, error) {
	return c.Monitor(ctx, DefaultMonitorMask)
}

// Monitor subscribes to the events in mask. The first Next returns the
// current state.
func (c *channel) Monitor(ctx context.Context, mask pvdata.EventMask) (types.Nexter, error) {
	s := newSubscription(ctx, mask)
	r := c.r
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.snapshotLocked(r.value, mask)
	if err != nil {
		return nil, err
	}
	s.offer(u)
	r.subs[s] = struct{}{}
	return s, nil
}

// CreateChannel implements types.ChannelProvider.
func (l *Layer) CreateChannel(ctx context.Context, name string) (types.Channel, error) {
	r, err := l.record(name)
	if err != nil {
		return nil, nil
	}
	return &channel{l: l, r: r}, nil
}

// ChannelList returns every PV name, sorted.
func (l *Layer) ChannelList(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.records))
	for name := range l.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Layer) ChannelFind(ctx context.Context, name string) (bool, error) {
	_, err := l.record(name)
	return err == nil, nil
}

// prune drops subscriptions whose context is done.
func (l *Layer) prune() {
	for _, r := range l.sorted() {
		r.mu.Lock()
		for s := range r.subs {
			if s.ctx.Err() != nil {
				delete(r.subs, s)
			}
		}
		r.mu.Unlock()
	}
}
