package paramlib

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

// record is one PV: its fixed definition and its entry in the parameter
// library.
type record struct {
	name   string
	tag    ait.Enum
	count  int
	scan   time.Duration
	enums  []string
	states []pvdata.Severity
	prec   int32
	unit   string
	hilim  float64
	lolim  float64
	high   float64
	low    float64
	hihi   float64
	lolo   float64
	mdel   float64
	adel   float64
	soft   bool

	validLowHigh  bool
	validLoloHihi bool

	// cbMu is held while a host callback runs for this PV.
	cbMu sync.Mutex

	mu        sync.Mutex
	value     []byte
	mlst      interface{} // last value posted to monitors
	alst      interface{} // last value posted to the archive
	alarm     pvdata.AlarmCondition
	severity  pvdata.Severity
	mask      pvdata.EventMask
	flag      bool
	timestamp time.Time
	subs      map[*subscription]struct{}
}

func newRecord(def native.PVDef, now time.Time) (*record, error) {
	if def.Count < 1 {
		return nil, fmt.Errorf("PV %q: count %d", def.Name, def.Count)
	}
	if err := pvdata.CheckBuffer(def.Value, def.Type, int(def.Count)); err != nil {
		return nil, fmt.Errorf("PV %q: initial value: %w", def.Name, err)
	}
	r := &record{
		name:          def.Name,
		tag:           def.Type,
		count:         int(def.Count),
		scan:          def.ScanPeriod(),
		enums:         def.EnumLabels(),
		states:        def.StateSeverities(),
		prec:          def.Prec,
		unit:          def.Unit,
		hilim:         def.Hilim,
		lolim:         def.Lolim,
		high:          def.High,
		low:           def.Low,
		hihi:          def.Hihi,
		lolo:          def.Lolo,
		mdel:          def.Mdel,
		adel:          def.Adel,
		soft:          def.Soft,
		validLowHigh:  def.Low < def.High,
		validLoloHihi: def.Lolo < def.Hihi,
		value:         append([]byte(nil), def.Value...),
		alarm:         pvdata.AlarmUDF,
		severity:      pvdata.SeverityInvalid,
		timestamp:     now,
		subs:          make(map[*subscription]struct{}),
	}
	if r.count == 1 {
		values, err := pvdata.Decode(r.value, r.tag, 1)
		if err != nil {
			return nil, fmt.Errorf("PV %q: %w", def.Name, err)
		}
		r.mlst, r.alst = values[0], values[0]
	}
	return r, nil
}

func (r *record) scanned() bool {
	return r.scan > 0
}

func number(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int32:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// checkValue returns the events a change to buf raises and records buf as
// last posted for each event raised. Arrays always raise value and log
// events; numeric scalars only when they move by more than the deadband.
func (r *record) checkValue(buf []byte) (pvdata.EventMask, error) {
	if r.count > 1 {
		return pvdata.EventValue | pvdata.EventLog, nil
	}
	values, err := pvdata.Decode(buf, r.tag, 1)
	if err != nil {
		return 0, err
	}
	v := values[0]
	var mask pvdata.EventMask
	if x, ok := number(v); ok && r.tag != ait.Enum16 {
		m, _ := number(r.mlst)
		if math.Abs(m-x) > r.mdel {
			mask |= pvdata.EventValue
			r.mlst = v
		}
		a, _ := number(r.alst)
		if math.Abs(a-x) > r.adel {
			mask |= pvdata.EventLog
			r.alst = v
		}
		return mask, nil
	}
	if v != r.mlst {
		mask |= pvdata.EventValue
		r.mlst = v
	}
	if v != r.alst {
		mask |= pvdata.EventLog
		r.alst = v
	}
	return mask, nil
}

// checkAlarm computes the alarm buf puts the PV in. Limits only apply when
// ordered: low/high when low < high, lolo/hihi when lolo < hihi. Strings and
// arrays never alarm.
func (r *record) checkAlarm(buf []byte) (pvdata.AlarmCondition, pvdata.Severity, error) {
	if r.count > 1 || r.tag == ait.String {
		return pvdata.AlarmNone, pvdata.SeverityNone, nil
	}
	values, err := pvdata.Decode(buf, r.tag, 1)
	if err != nil {
		return 0, 0, err
	}
	if r.tag == ait.Enum16 {
		idx := values[0].(int32)
		if idx < 0 || int(idx) >= len(r.states) {
			return pvdata.AlarmState, pvdata.SeverityMajor, nil
		}
		sev := r.states[idx]
		if sev == pvdata.SeverityNone {
			return pvdata.AlarmNone, sev, nil
		}
		return pvdata.AlarmState, sev, nil
	}

	x, _ := number(values[0])
	alarm, sev := pvdata.AlarmNone, pvdata.SeverityNone
	if r.validLowHigh {
		if x <= r.low {
			alarm, sev = pvdata.AlarmLow, pvdata.SeverityMinor
		} else if x >= r.high {
			alarm, sev = pvdata.AlarmHigh, pvdata.SeverityMinor
		}
	}
	if r.validLoloHihi {
		if x <= r.lolo {
			alarm, sev = pvdata.AlarmLoLo, pvdata.SeverityMajor
		} else if x >= r.hihi {
			alarm, sev = pvdata.AlarmHiHi, pvdata.SeverityMajor
		}
	}
	return alarm, sev, nil
}

// setStatusLocked records a new alarm state. r.mu must be held.
func (r *record) setStatusLocked(alarm pvdata.AlarmCondition, severity pvdata.Severity) bool {
	changed := false
	if alarm != r.alarm {
		r.alarm = alarm
		changed = true
	}
	if severity != r.severity {
		r.severity = severity
		changed = true
	}
	if changed {
		r.mask |= pvdata.EventAlarm
		r.flag = true
	}
	return changed
}

// setValueLocked stores buf, which must already be checked against the
// record's layout, and updates the event mask and alarm. r.mu must be held.
func (r *record) setValueLocked(buf []byte, now time.Time) error {
	mask, err := r.checkValue(buf)
	if err != nil {
		return err
	}
	alarm, severity, err := r.checkAlarm(buf)
	if err != nil {
		return err
	}
	r.mask |= mask
	copy(r.value, buf)
	r.timestamp = now
	if r.mask != 0 {
		r.flag = true
	}
	r.setStatusLocked(alarm, severity)
	return nil
}

// hostValue decodes buf into the form clients and hosts see.
func (r *record) hostValue(buf []byte) (interface{}, error) {
	values, err := pvdata.Decode(buf, r.tag, r.count)
	if err != nil {
		return nil, err
	}
	return pvdata.HostValue(r.tag, values)
}

// snapshotLocked describes the PV as it stands, with value taken from buf.
// r.mu must be held.
func (r *record) snapshotLocked(buf []byte, mask pvdata.EventMask) (*pvdata.Update, error) {
	value, err := r.hostValue(buf)
	if err != nil {
		return nil, err
	}
	u := &pvdata.Update{
		Name:      r.name,
		Value:     value,
		TimeStamp: r.timestamp,
		Mask:      mask,
		Alarm: pvdata.Alarm{
			Severity: r.severity,
			Status:   r.alarm,
		},
		Display: pvdata.Display{
			LimitLow:  r.lolim,
			LimitHigh: r.hilim,
			Units:     r.unit,
			Precision: r.prec,
		},
		Control: pvdata.Control{
			LimitLow:  r.lolim,
			LimitHigh: r.hilim,
		},
		ValueAlarm: pvdata.ValueAlarm{
			Active:           r.validLowHigh || r.validLoloHihi,
			LowAlarmLimit:    r.lolo,
			LowWarningLimit:  r.low,
			HighWarningLimit: r.high,
			HighAlarmLimit:   r.hihi,
		},
	}
	if r.alarm != pvdata.AlarmNone {
		u.Alarm.Message = r.alarm.String()
	}
	if r.tag == ait.Enum16 {
		idx, _ := value.(int32)
		u.Enum = &pvdata.Enum{Index: idx, Choices: r.enums}
	}
	return u, nil
}

// postLocked sends pending changes to subscribers and clears them. r.mu must
// be held.
func (r *record) postLocked() error {
	r.flag = false
	mask := r.mask
	r.mask = 0
	if len(r.subs) == 0 {
		return nil
	}
	u, err := r.snapshotLocked(r.value, mask)
	if err != nil {
		return err
	}
	for s := range r.subs {
		if s.mask&mask != 0 {
			s.offer(u)
		}
	}
	return nil
}
