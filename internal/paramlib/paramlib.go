// Package paramlib is an in-process native layer: a parameter library of PV
// values and alarms, periodic scanning and a serve loop that handles client
// requests. It keeps the behavior of a portable channel access server driver
// without the network protocol, so the host boundary can run end to end.
package paramlib

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

var (
	// ErrUndefined is returned by a client get whose value could not be read.
	ErrUndefined = errors.New("value undefined")
	// ErrNotServing is returned by client requests once the serve loop has
	// stopped.
	ErrNotServing = errors.New("serve loop not running")
)

// Debug levels.
const (
	// DebugErrors logs errors only.
	DebugErrors = iota
	// DebugTables also logs the PV definitions, the PV list, the parameter
	// library and loop startup.
	DebugTables
	// DebugCalls also logs every parameter access and callback.
	DebugCalls
)

type Layer struct {
	ctx   context.Context
	alloc *allocator
	debug int32
	now   func() time.Time

	mu      sync.RWMutex
	records map[string]*record
	read    native.ReadCallback
	write   native.WriteCallback

	g         errgroup.Group
	serving   int32
	requests  chan func()
	serveDone chan struct{}
}

var _ native.Layer = (*Layer)(nil)

// New returns an empty layer. ctx supplies the logger.
func New(ctx context.Context) *Layer {
	return &Layer{
		ctx:       ctx,
		alloc:     newAllocator(),
		now:       time.Now,
		requests:  make(chan func()),
		serveDone: make(chan struct{}),
	}
}

func (l *Layer) log(level int) *logrus.Entry {
	if int(atomic.LoadInt32(&l.debug)) < level {
		return nil
	}
	return ctxlog.L(l.ctx)
}

// debugf logs at Info when the debug level is at least level.
func (l *Layer) debugf(level int, fields ctxlog.Fields, format string, args ...interface{}) {
	if e := l.log(level); e != nil {
		e.WithFields(fields).Infof(format, args...)
	}
}

func (l *Layer) SetDebugLevel(level int) {
	atomic.StoreInt32(&l.debug, int32(level))
}

// CreateServer registers defs and fills the parameter library from their
// initial values.
func (l *Layer) CreateServer(defs []native.PVDef) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records != nil {
		return native.ErrAlreadyCreated
	}
	for i := range defs {
		d := &defs[i]
		l.debugf(DebugTables, ctxlog.Fields{
			"name":   d.Name,
			"type":   d.Type,
			"count":  d.Count,
			"scan":   d.Scan,
			"enums":  d.EnumLabels(),
			"states": d.StateSeverities(),
			"prec":   d.Prec,
			"unit":   d.Unit,
			"hilim":  d.Hilim,
			"lolim":  d.Lolim,
			"high":   d.High,
			"low":    d.Low,
			"hihi":   d.Hihi,
			"lolo":   d.Lolo,
			"mdel":   d.Mdel,
			"adel":   d.Adel,
			"soft":   d.Soft,
		}, "PV definition")
	}

	now := l.now()
	records := make(map[string]*record, len(defs))
	for _, d := range defs {
		if _, ok := records[d.Name]; ok {
			return fmt.Errorf("PV %q defined twice", d.Name)
		}
		r, err := newRecord(d, now)
		if err != nil {
			return err
		}
		records[d.Name] = r
	}
	l.records = records

	for _, r := range l.sortedLocked() {
		l.debugf(DebugTables, ctxlog.Fields{
			ctxlog.FieldPV: r.name,
			"value":        formatValue(r, r.value),
			"alarm":        r.alarm,
			"severity":     r.severity,
		}, "parameter library")
	}
	return nil
}

// InstallReadCallback sets the read callback. A nil callback is ignored.
func (l *Layer) InstallReadCallback(cb native.ReadCallback) {
	if cb == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.read = cb
}

// InstallWriteCallback sets the write callback. A nil callback is ignored.
func (l *Layer) InstallWriteCallback(cb native.WriteCallback) {
	if cb == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write = cb
}

func (l *Layer) readCallback() native.ReadCallback {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.read
}

func (l *Layer) writeCallback() native.WriteCallback {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.write
}

// callRead runs the read callback for r. Callbacks for one PV never overlap.
func (l *Layer) callRead(r *record, sv *native.SimpleValue) (bool, error) {
	read := l.readCallback()
	if read == nil {
		return false, nil
	}
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	updated, err := read(r.name, sv)
	if updated {
		l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: r.name, "value": formatValue(r, sv.Buffer)}, "read")
	}
	return updated, err
}

func (l *Layer) callWrite(r *record, sv *native.SimpleValue) error {
	write := l.writeCallback()
	if write == nil {
		return nil
	}
	l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: r.name, "value": formatValue(r, sv.Buffer)}, "write")
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	return write(r.name, sv)
}

func (l *Layer) record(name string) (*record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.records == nil {
		return nil, native.ErrNotCreated
	}
	r, ok := l.records[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, native.ErrUnknownPV)
	}
	return r, nil
}

func (l *Layer) sorted() []*record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedLocked()
}

func (l *Layer) sortedLocked() []*record {
	out := make([]*record, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// GetParam returns a copy of the stored value in a buffer that must be
// released.
func (l *Layer) GetParam(name string) (*native.SimpleValue, error) {
	r, err := l.record(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, release := l.alloc.alloc(len(r.value))
	copy(buf, r.value)
	l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: name, "value": formatValue(r, buf)}, "getParam")
	return native.NewOwned(r.tag, r.count, buf, release), nil
}

func (l *Layer) GetSimpleValue(name string) (native.SimpleValue, error) {
	r, err := l.record(name)
	if err != nil {
		return native.SimpleValue{}, err
	}
	return native.SimpleValue{Type: r.tag, Count: r.count}, nil
}

// SetParam stores v's value, raising value, log and alarm events as the
// change warrants. v is read with the PV's own type and count.
func (l *Layer) SetParam(name string, v *native.SimpleValue) error {
	r, err := l.record(name)
	if err != nil {
		return err
	}
	if err := pvdata.CheckBuffer(v.Buffer, r.tag, r.count); err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: name, "value": formatValue(r, v.Buffer)}, "setParam")
	return l.storeLocked(r, v.Buffer)
}

// storeLocked sets r's value. r.mu must be held.
func (l *Layer) storeLocked(r *record, buf []byte) error {
	alarm, severity := r.alarm, r.severity
	if err := r.setValueLocked(buf, l.now()); err != nil {
		return err
	}
	if alarm != r.alarm || severity != r.severity {
		l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: r.name, "alarm": r.alarm, "severity": r.severity}, "setParamStatus")
	}
	return nil
}

func (l *Layer) SetParamStatus(name string, alarm pvdata.AlarmCondition, severity pvdata.Severity) error {
	r, err := l.record(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setStatusLocked(alarm, severity) {
		l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: name, "alarm": alarm, "severity": severity}, "setParamStatus")
	}
	return nil
}

// UpdatePVs posts pending changes of unscanned PVs. Scanned PVs post from
// their scan loop.
func (l *Layer) UpdatePVs() {
	for _, r := range l.sorted() {
		r.mu.Lock()
		if r.flag && !r.scanned() {
			if err := r.postLocked(); err != nil {
				ctxlog.L(l.ctx).WithField(ctxlog.FieldPV, r.name).WithError(err).Error("posting update")
			}
			l.debugf(DebugCalls, ctxlog.Fields{ctxlog.FieldPV: r.name}, "PV updated")
		}
		r.mu.Unlock()
	}
}

// Outstanding returns the number of buffers handed out by GetParam or to
// callbacks that have not been released.
func (l *Layer) Outstanding() int {
	return l.alloc.count()
}

func formatValue(r *record, buf []byte) string {
	v, err := r.hostValue(buf)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return fmt.Sprint(v)
}
