// Package bridge carries values between the native server's callbacks and
// the host's driver functions.
//
// The native server calls Read when it needs a fresh value for a PV and Write
// when a client writes one. Both run on the server's goroutines, at times the
// host does not control.
//
// Driver functions must return quickly. The native scan and serve loops wait
// for them, so a driver that blocks stalls every PV served by that loop, and
// a driver that never returns hangs it for good. There is no timeout.
//
// The bridge takes no locks. Calls for different PVs may run at the same time
// as each other and as host accessor calls; the native server guarantees that
// calls for the same PV do not overlap. Drivers that cannot tolerate
// concurrent calls should be wrapped with a SerialDispatcher.
package bridge

import (
	"context"
	"errors"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

// ReadFunc returns the current value of a PV: a scalar, a slice of
// count elements, or nil when no update is available.
type ReadFunc func(name string) interface{}

// WriteFunc receives a value a client wrote: a scalar when the PV has one
// element, otherwise a typed slice.
type WriteFunc func(name string, value interface{})

// Drivers are the host functions backing PVs. Either may be nil.
type Drivers struct {
	Read  ReadFunc
	Write WriteFunc
}

// Bridge adapts Drivers to native callbacks. It is immutable once built.
type Bridge struct {
	ctx      context.Context
	drivers  Drivers
	dispatch Dispatcher
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithDispatcher runs driver calls through d instead of calling them on the
// native goroutine directly.
func WithDispatcher(d Dispatcher) Option {
	return func(b *Bridge) {
		if d != nil {
			b.dispatch = d
		}
	}
}

// New returns a Bridge for drivers. ctx supplies the logger.
func New(ctx context.Context, drivers Drivers, opts ...Option) *Bridge {
	b := &Bridge{
		ctx:      ctx,
		drivers:  drivers,
		dispatch: Direct{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Read asks the read driver for name's value and encodes it into out's
// buffer. out must describe the PV's type and count; its buffer belongs to
// the caller. The buffer is written only when updated is true.
func (b *Bridge) Read(name string, out *native.SimpleValue) (updated bool, err error) {
	ctx := ctxlog.WithPV(b.ctx, name)
	if b.drivers.Read == nil {
		return false, nil
	}
	var result interface{}
	if err := b.dispatch.Dispatch(func() { result = b.drivers.Read(name) }); err != nil {
		return false, err
	}
	if result == nil {
		ctxlog.L(ctx).Debug("no data returned by read driver")
		return false, nil
	}
	values, err := pvdata.Sequence(result)
	if err != nil {
		ctxlog.L(ctx).WithError(err).Warn("read driver returned an unusable value")
		return false, err
	}
	if len(values) != out.Count {
		err := &pvdata.ProtocolMismatchError{What: "element count", Got: len(values), Want: out.Count}
		ctxlog.L(ctx).WithError(err).Warn("read driver value rejected")
		return false, err
	}
	if err := pvdata.EncodeInto(out.Buffer, out.Type, values); err != nil {
		logEncodeError(ctx, err)
		return false, err
	}
	return true, nil
}

// Write decodes in and passes the value to the write driver. in and its
// buffer belong to the caller and are not retained.
func (b *Bridge) Write(name string, in *native.SimpleValue) error {
	ctx := ctxlog.WithPV(b.ctx, name)
	if b.drivers.Write == nil {
		return nil
	}
	if err := in.Check(); err != nil {
		logEncodeError(ctx, err)
		return err
	}
	values, err := pvdata.Decode(in.Buffer, in.Type, in.Count)
	if err != nil {
		logEncodeError(ctx, err)
		return err
	}
	value, err := pvdata.HostValue(in.Type, values)
	if err != nil {
		logEncodeError(ctx, err)
		return err
	}
	return b.dispatch.Dispatch(func() { b.drivers.Write(name, value) })
}

// ReadCallback returns Read as a native callback, or nil without a read
// driver.
func (b *Bridge) ReadCallback() native.ReadCallback {
	if b.drivers.Read == nil {
		return nil
	}
	return b.Read
}

// WriteCallback returns Write as a native callback, or nil without a write
// driver.
func (b *Bridge) WriteCallback() native.WriteCallback {
	if b.drivers.Write == nil {
		return nil
	}
	return b.Write
}

func logEncodeError(ctx context.Context, err error) {
	var unknown *pvdata.UnknownTypeError
	if errors.As(err, &unknown) {
		ctxlog.L(ctx).WithError(err).Error("unsupported type at native boundary")
		return
	}
	ctxlog.L(ctx).WithError(err).Warn("value rejected")
}
