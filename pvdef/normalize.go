package pvdef

import (
	"fmt"
	"time"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/pvdata"
)

// DefaultType is used for declarations without a type.
const DefaultType = ait.PVTypeFloat

// Record is a normalized declaration. Every field holds its final value;
// Enums and States carry their true lengths.
type Record struct {
	Name  string
	Type  ait.Enum
	Count int
	// Scan is the periodic read interval in seconds; 0 disables scanning.
	Scan   float64
	Enums  []string
	States []pvdata.Severity
	Prec   int
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
	// Value is the initial value encoded for Type, Count elements long.
	Value []byte
}

// ScanPeriod returns Scan as a duration.
func (r *Record) ScanPeriod() time.Duration {
	return time.Duration(r.Scan * float64(time.Second))
}

// Normalize turns validated declarations into records. The declarations are
// not modified. Call Validate first; Normalize assumes field types are right.
//
// It fails with a *pvdata.UnknownTypeError (wrapped) when a type name does
// not resolve, and with a *SchemaError when the initial value or the enum
// lists cannot be converted.
func Normalize(decls []Declaration) ([]Record, error) {
	out := make([]Record, 0, len(decls))
	for i, d := range decls {
		r, err := normalizeOne(i, d)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func normalizeOne(i int, d Declaration) (Record, error) {
	r := Record{
		Name:  d.Name(),
		Count: 1,
		Soft:  true,
	}

	pvType := DefaultType
	if s, ok := d[FieldType].(string); ok {
		pvType = s
	}
	r.Type = ait.FromPVType(pvType)
	if !r.Type.Supported() {
		return r, fmt.Errorf("PV %q: type %q: %w", r.Name, pvType, &pvdata.UnknownTypeError{Type: r.Type})
	}

	if n, ok := intValue(d[FieldCount]); ok {
		r.Count = n
	}
	r.Scan, _ = floatValue(d[FieldScan])

	if v, ok := d[FieldEnums]; ok {
		labels, err := stringList(v)
		if err != nil {
			return r, &SchemaError{Index: i, PV: r.Name, Field: FieldEnums, Reason: "invalid label", Err: err}
		}
		r.Enums = labels
	}
	if len(r.Enums) > 0 {
		// Per-state severities follow the label count; they are not configurable.
		r.States = make([]pvdata.Severity, len(r.Enums))
	} else if v, ok := d[FieldStates]; ok {
		states, err := severityList(v)
		if err != nil {
			return r, &SchemaError{Index: i, PV: r.Name, Field: FieldStates, Reason: "invalid state", Err: err}
		}
		r.States = states
	}

	if n, ok := intValue(d[FieldPrec]); ok {
		r.Prec = n
	}
	r.Unit, _ = d[FieldUnit].(string)
	for field, dst := range map[string]*float64{
		FieldHilim: &r.Hilim,
		FieldLolim: &r.Lolim,
		FieldHigh:  &r.High,
		FieldLow:   &r.Low,
		FieldHihi:  &r.Hihi,
		FieldLolo:  &r.Lolo,
		FieldMdel:  &r.Mdel,
		FieldAdel:  &r.Adel,
	} {
		*dst, _ = floatValue(d[field])
	}
	if b, ok := d[FieldSoft].(bool); ok {
		r.Soft = b
	}

	values, err := initialValue(r.Type, r.Count, d[FieldValue])
	if err != nil {
		return r, &SchemaError{Index: i, PV: r.Name, Field: FieldValue, Reason: "invalid value", Err: err}
	}
	buf, err := pvdata.Encode(r.Type, values)
	if err != nil {
		return r, &SchemaError{Index: i, PV: r.Name, Field: FieldValue, Reason: "cannot encode value", Err: err}
	}
	r.Value = buf
	return r, nil
}

// initialValue returns the declared value as a count-element sequence, or
// zero values ("" for strings) when none was declared.
func initialValue(tag ait.Enum, count int, v interface{}) ([]interface{}, error) {
	if v == nil {
		var zero interface{} = 0
		if tag == ait.String {
			zero = ""
		}
		out := make([]interface{}, count)
		for i := range out {
			out[i] = zero
		}
		return out, nil
	}
	values, err := pvdata.Sequence(v)
	if err != nil {
		return nil, err
	}
	if len(values) != count {
		return nil, &pvdata.ProtocolMismatchError{What: "element count", Got: len(values), Want: count}
	}
	return values, nil
}

func stringList(v interface{}) ([]string, error) {
	items, err := pvdata.Sequence(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %d: %T is not a string", i, item)
		}
		out[i] = s
	}
	return out, nil
}

func severityList(v interface{}) ([]pvdata.Severity, error) {
	items, err := pvdata.Sequence(v)
	if err != nil {
		return nil, err
	}
	out := make([]pvdata.Severity, len(items))
	for i, item := range items {
		n, ok := intValue(item)
		if !ok {
			return nil, fmt.Errorf("element %d: %v is not an integer", i, item)
		}
		out[i] = pvdata.Severity(n)
	}
	return out, nil
}
