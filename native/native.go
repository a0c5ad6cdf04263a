// Package native describes the contract between this module and a native
// channel access server. The server owns the network protocol, change
// notification, alarm state and scan scheduling; this package only fixes the
// shape of the calls made across the boundary and of the buffers exchanged.
package native

import (
	"context"
	"errors"
	"time"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/pvdata"
)

var (
	// ErrUnknownPV is returned for a name the server was not created with.
	ErrUnknownPV = errors.New("unknown PV")
	// ErrAlreadyCreated is returned by a second CreateServer call.
	ErrAlreadyCreated = errors.New("server already created")
	// ErrNotCreated is returned by calls that require CreateServer first.
	ErrNotCreated = errors.New("server not created")
)

// StateTerminator ends PVDef.States.
const StateTerminator = -1

// PVDef is the fixed-layout record handed to Layer.CreateServer. The native
// side has no length-prefixed arrays: Enums ends with a nil entry and States
// ends with StateTerminator.
type PVDef struct {
	Name  string
	Type  ait.Enum
	Count int32
	// Scan is the periodic read interval in seconds; 0 disables scanning.
	Scan   float64
	Enums  []*string
	States []int32
	Prec   int32
	Unit   string
	Hilim  float64
	Lolim  float64
	High   float64
	Low    float64
	Hihi   float64
	Lolo   float64
	Mdel   float64
	Adel   float64
	Soft   bool
	// Value is the initial value buffer. Ownership passes to the native
	// side at registration.
	Value []byte
}

// EnumLabels returns the labels in Enums up to the terminator.
func (d *PVDef) EnumLabels() []string {
	var out []string
	for _, e := range d.Enums {
		if e == nil {
			break
		}
		out = append(out, *e)
	}
	return out
}

// StateSeverities returns the severities in States up to the terminator.
func (d *PVDef) StateSeverities() []pvdata.Severity {
	var out []pvdata.Severity
	for _, s := range d.States {
		if s == StateTerminator {
			break
		}
		out = append(out, pvdata.Severity(s))
	}
	return out
}

// ScanPeriod returns Scan as a duration.
func (d *PVDef) ScanPeriod() time.Duration {
	return time.Duration(d.Scan * float64(time.Second))
}

// ReadCallback asks the host for a fresh value of a PV. out carries the
// PV's type and count and a buffer owned by the native side; the callback
// fills the buffer in place and reports whether it did. When updated is false
// or err is non-nil the buffer has not been touched.
type ReadCallback func(name string, out *SimpleValue) (updated bool, err error)

// WriteCallback hands a client write to the host. in and its buffer are owned
// by the native side and valid only for the duration of the call.
type WriteCallback func(name string, in *SimpleValue) error

// Layer is a native channel access server.
//
// Callbacks run on the server's own goroutines. A Layer never invokes
// callbacks for the same PV concurrently; callbacks for different PVs may run
// at the same time as each other and as accessor calls.
type Layer interface {
	// CreateServer registers the PV table. It must be called exactly once,
	// before any other call except SetDebugLevel.
	CreateServer(defs []PVDef) error
	InstallReadCallback(cb ReadCallback)
	InstallWriteCallback(cb WriteCallback)
	// CreateScanThread starts periodic reads for PVs with a positive scan
	// period. It returns immediately; scanning stops when ctx is done.
	CreateScanThread(ctx context.Context)
	// ServerProcess starts the serve loop, polling every delay. It returns
	// immediately; serving stops when ctx is done.
	ServerProcess(ctx context.Context, delay time.Duration)
	// Wait blocks until every goroutine started by CreateScanThread and
	// ServerProcess has returned.
	Wait() error
	SetDebugLevel(level int)

	// GetParam returns a copy of the PV's current value in a buffer the
	// native side allocated. The caller must Release it exactly once.
	GetParam(name string) (*SimpleValue, error)
	// GetSimpleValue returns the PV's type and count with a nil buffer.
	GetSimpleValue(name string) (SimpleValue, error)
	// SetParam copies v's buffer into the parameter library. v remains
	// owned by the caller.
	SetParam(name string, v *SimpleValue) error
	SetParamStatus(name string, alarm pvdata.AlarmCondition, severity pvdata.Severity) error
	// UpdatePVs posts pending value and alarm changes to subscribers.
	UpdatePVs()
}
