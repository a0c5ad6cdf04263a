package paramlib

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/native"
)

// CreateScanThread starts one scan loop per PV with a positive scan period.
func (l *Layer) CreateScanThread(ctx context.Context) {
	for _, r := range l.sorted() {
		if !r.scanned() {
			continue
		}
		r := r
		l.g.Go(func() error {
			l.scanLoop(ctx, r)
			return nil
		})
	}
}

func (l *Layer) scanLoop(ctx context.Context, r *record) {
	l.debugf(DebugTables, ctxlog.Fields{ctxlog.FieldPV: r.name, "scan": r.scan}, "starting scan loop")
	ticker := time.NewTicker(r.scan)
	defer ticker.Stop()
	for {
		if !r.soft {
			l.scanOnce(ctx, r)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scanOnce reads r from the host and posts the result. A read that produces
// no update leaves the parameter library untouched.
func (l *Layer) scanOnce(ctx context.Context, r *record) {
	if l.readCallback() == nil {
		return
	}
	buf, release := l.alloc.alloc(len(r.value))
	sv := native.NewOwned(r.tag, r.count, buf, release)
	defer sv.Release()

	log := ctxlog.L(ctxlog.WithPV(ctx, r.name))
	updated, err := l.callRead(r, sv)
	if err != nil {
		log.WithError(err).Warn("scan read failed")
		return
	}
	if !updated {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := l.storeLocked(r, sv.Buffer); err != nil {
		log.WithError(err).Error("storing scanned value")
		return
	}
	if r.flag {
		if err := r.postLocked(); err != nil {
			log.WithError(err).Error("posting scanned value")
		}
	}
}

const defaultDelay = 200 * time.Millisecond

// ServerProcess starts the serve loop. Client requests run on it one at a
// time; every delay it also drops subscriptions whose clients went away.
func (l *Layer) ServerProcess(ctx context.Context, delay time.Duration) {
	if !atomic.CompareAndSwapInt32(&l.serving, 0, 1) {
		ctxlog.L(l.ctx).Error("serve loop already running")
		return
	}
	if delay <= 0 {
		delay = defaultDelay
	}
	l.g.Go(func() error {
		defer close(l.serveDone)
		l.debugf(DebugTables, ctxlog.Fields{"delay": delay}, "starting serve loop")
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case fn := <-l.requests:
				fn()
			case <-ticker.C:
				l.prune()
			}
		}
	})
}

// serve runs fn on the serve loop and waits for it to return. It blocks
// until the loop picks fn up, ctx is done or the loop stops.
func (l *Layer) serve(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	req := func() {
		defer close(done)
		fn()
	}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.serveDone:
		return ErrNotServing
	}
	<-done
	return nil
}

// Wait blocks until every scan loop and the serve loop have returned.
func (l *Layer) Wait() error {
	return l.g.Wait()
}
