// Package pcas serves process variables through a native channel access
// server, with values supplied and consumed by host code.
//
// A Server goes through two phases. Start validates the PV declarations,
// registers them with the native layer, installs the host's drivers and
// starts the native scan and serve loops. After that the drivers are fixed
// and the host moves values with GetParam, SetParam, SetParamStatus and
// UpdatePVs.
//
// Read and write drivers run on the native layer's goroutines and must
// return quickly; see package bridge for the full contract.
package pcas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quentinmit/go-pcas/bridge"
	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/internal/server/status"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
	"github.com/quentinmit/go-pcas/pvdef"
)

// DefaultPollInterval is how often the native serve loop polls for client
// requests when Config.PollInterval is zero.
const DefaultPollInterval = 200 * time.Millisecond

var (
	// ErrNotStarted is returned by accessors called before Start.
	ErrNotStarted = errors.New("server not started")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("server already started")
)

// Config is everything Start needs. It is read once.
type Config struct {
	PVs []pvdef.Declaration
	// Read and Write are the host drivers. Either may be nil: without a
	// read driver, non-soft PVs only change through SetParam; without a
	// write driver, client writes are stored without host involvement.
	Read  bridge.ReadFunc
	Write bridge.WriteFunc
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Dispatcher runs driver calls. The default calls them directly on the
	// native goroutine.
	Dispatcher bridge.Dispatcher
}

type Server struct {
	layer native.Layer

	mu               sync.Mutex
	started          atomic.Bool
	startTime        time.Time
	bridge           *bridge.Bridge
	channelProviders []ChannelProvider
}

// NewServer returns a Server backed by layer.
func NewServer(layer native.Layer) *Server {
	srv := &Server{layer: layer}
	if p, ok := layer.(ChannelProvider); ok {
		srv.channelProviders = append(srv.channelProviders, p)
	}
	srv.channelProviders = append(srv.channelProviders, &status.Channel{Server: srv})
	return srv
}

// Start registers cfg.PVs and starts serving them. Schema problems are
// reported as a *SchemaError before anything is registered, and Start may be
// called again after fixing them. Once registration has happened, Start
// cannot be called again.
//
// The native loops run until ctx is done; Wait blocks until they exit.
func (srv *Server) Start(ctx context.Context, cfg Config) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.started.Load() {
		return ErrAlreadyStarted
	}

	if err := pvdef.Validate(cfg.PVs); err != nil {
		return err
	}
	records, err := pvdef.Normalize(cfg.PVs)
	if err != nil {
		var unknown *pvdata.UnknownTypeError
		if errors.As(err, &unknown) {
			ctxlog.L(ctx).WithError(err).Error("unsupported PV type")
		}
		return err
	}
	if err := srv.layer.CreateServer(pvdef.Table(records)); err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.started.Store(true)
	srv.startTime = time.Now()
	for _, p := range srv.channelProviders {
		if s, ok := p.(*status.Channel); ok {
			s.StartTime = srv.startTime
		}
	}

	srv.bridge = bridge.New(ctx, bridge.Drivers{Read: cfg.Read, Write: cfg.Write}, bridge.WithDispatcher(cfg.Dispatcher))
	if cb := srv.bridge.ReadCallback(); cb != nil {
		srv.layer.InstallReadCallback(cb)
	}
	if cb := srv.bridge.WriteCallback(); cb != nil {
		srv.layer.InstallWriteCallback(cb)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	srv.layer.CreateScanThread(ctx)
	srv.layer.ServerProcess(ctx, poll)
	ctxlog.L(ctx).WithFields(ctxlog.Fields{
		"pvs":  len(records),
		"poll": poll,
	}).Info("serving PVs")
	return nil
}

// Wait blocks until the native loops have exited.
func (srv *Server) Wait() error {
	if !srv.started.Load() {
		return ErrNotStarted
	}
	return srv.layer.Wait()
}

// SetDebugLevel sets the native layer's verbosity. It may be called at any
// time.
func (srv *Server) SetDebugLevel(level int) {
	srv.layer.SetDebugLevel(level)
}

// GetParam returns the current value of a PV: a bare element when the PV has
// one element, otherwise a typed slice. It returns nil, nil when the native
// layer reports no elements.
func (srv *Server) GetParam(ctx context.Context, name string) (value interface{}, err error) {
	if !srv.started.Load() {
		return nil, ErrNotStarted
	}
	ctx = ctxlog.WithPV(ctx, name)
	v, err := srv.layer.GetParam(name)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", name, err)
	}
	defer func() {
		if rerr := v.Release(); rerr != nil {
			ctxlog.L(ctx).WithError(rerr).Error("releasing native buffer")
			if err == nil {
				err = rerr
			}
		}
	}()
	if v.Count < 1 {
		ctxlog.L(ctx).Warnf("native layer reported %d elements", v.Count)
		return nil, nil
	}
	if err := v.Check(); err != nil {
		logValueError(ctx, err)
		return nil, fmt.Errorf("get %q: %w", name, err)
	}
	values, err := pvdata.Decode(v.Buffer, v.Type, v.Count)
	if err != nil {
		logValueError(ctx, err)
		return nil, fmt.Errorf("get %q: %w", name, err)
	}
	return pvdata.HostValue(v.Type, values)
}

// SetParam stores value as the PV's current value. value must have exactly
// as many elements as the PV was declared with; a scalar counts as one. The
// change reaches clients on the next UpdatePVs.
func (srv *Server) SetParam(ctx context.Context, name string, value interface{}) error {
	if !srv.started.Load() {
		return ErrNotStarted
	}
	ctx = ctxlog.WithPV(ctx, name)
	values, err := pvdata.Sequence(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	sv, err := srv.layer.GetSimpleValue(name)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	if len(values) != sv.Count {
		err := &pvdata.ProtocolMismatchError{What: "element count", Got: len(values), Want: sv.Count}
		ctxlog.L(ctx).WithError(err).Warn("value rejected")
		return fmt.Errorf("set %q: %w", name, err)
	}
	buf, err := pvdata.Encode(sv.Type, values)
	if err != nil {
		logValueError(ctx, err)
		return fmt.Errorf("set %q: %w", name, err)
	}
	return srv.layer.SetParam(name, &native.SimpleValue{Type: sv.Type, Count: sv.Count, Buffer: buf})
}

// SetParamStatus sets a PV's alarm condition and severity. The values are
// passed through unchecked.
func (srv *Server) SetParamStatus(ctx context.Context, name string, alarm AlarmCondition, severity Severity) error {
	if !srv.started.Load() {
		return ErrNotStarted
	}
	if err := srv.layer.SetParamStatus(name, alarm, severity); err != nil {
		return fmt.Errorf("set status %q: %w", name, err)
	}
	return nil
}

// UpdatePVs posts pending changes to subscribed clients.
func (srv *Server) UpdatePVs() error {
	if !srv.started.Load() {
		return ErrNotStarted
	}
	srv.layer.UpdatePVs()
	return nil
}

func logValueError(ctx context.Context, err error) {
	var unknown *pvdata.UnknownTypeError
	if errors.As(err, &unknown) {
		ctxlog.L(ctx).WithError(err).Error("unsupported type at native boundary")
		return
	}
	ctxlog.L(ctx).WithError(err).Warn("value rejected")
}
