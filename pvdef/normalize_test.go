package pvdef

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

func mustEncode(t *testing.T, tag ait.Enum, values ...interface{}) []byte {
	t.Helper()
	buf, err := pvdata.Encode(tag, values)
	if err != nil {
		t.Fatalf("Encode(%v, %v): %v", tag, values, err)
	}
	return buf
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		decl Declaration
		want Record
	}{
		{
			name: "defaults",
			decl: Declaration{"name": "t0"},
			want: Record{Name: "t0", Type: ait.Float32, Count: 1, Soft: true, Value: mustEncode(t, ait.Float32, 0)},
		},
		{
			name: "int",
			decl: Declaration{"name": "t1", "type": "int", "value": 42, "soft": false, "scan": 1},
			want: Record{Name: "t1", Type: ait.Int32, Count: 1, Scan: 1, Value: mustEncode(t, ait.Int32, 42)},
		},
		{
			name: "enum states follow labels",
			decl: Declaration{
				"name": "t2", "type": "enum",
				"enums":  []interface{}{"Stop", "Run"},
				"states": []interface{}{2, 2, 2},
				"value":  1,
			},
			want: Record{
				Name: "t2", Type: ait.Enum16, Count: 1, Soft: true,
				Enums:  []string{"Stop", "Run"},
				States: []pvdata.Severity{pvdata.SeverityNone, pvdata.SeverityNone},
				Value:  mustEncode(t, ait.Enum16, 1),
			},
		},
		{
			name: "states kept without labels",
			decl: Declaration{"name": "s", "type": "int", "states": []interface{}{1, 2}},
			want: Record{
				Name: "s", Type: ait.Int32, Count: 1, Soft: true,
				States: []pvdata.Severity{pvdata.SeverityMinor, pvdata.SeverityMajor},
				Value:  mustEncode(t, ait.Int32, 0),
			},
		},
		{
			name: "double array with metadata",
			decl: Declaration{
				"name": "t3", "type": "double", "count": 3,
				"prec": 3, "unit": "V", "hilim": 10, "lolim": -10,
				"high": 5, "low": -5, "hihi": 8, "lolo": -8, "mdel": 0.5, "adel": 1,
				"value": []interface{}{1, 2.5, -3},
			},
			want: Record{
				Name: "t3", Type: ait.Float64, Count: 3, Soft: true,
				Prec: 3, Unit: "V", Hilim: 10, Lolim: -10,
				High: 5, Low: -5, Hihi: 8, Lolo: -8, Mdel: 0.5, Adel: 1,
				Value: mustEncode(t, ait.Float64, 1, 2.5, -3),
			},
		},
		{
			name: "string default",
			decl: Declaration{"name": "msg", "type": "string"},
			want: Record{Name: "msg", Type: ait.String, Count: 1, Soft: true, Value: make([]byte, ait.MaxStringSize)},
		},
		{
			name: "string array",
			decl: Declaration{"name": "names", "type": "string", "count": 2, "value": []string{"a", "bc"}},
			want: Record{Name: "names", Type: ait.String, Count: 2, Soft: true, Value: mustEncode(t, ait.String, "a", "bc")},
		},
		{
			name: "int array zeroed",
			decl: Declaration{"name": "z", "type": "int", "count": 4},
			want: Record{Name: "z", Type: ait.Int32, Count: 4, Soft: true, Value: make([]byte, 16)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Normalize([]Declaration{test.decl})
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if diff := cmp.Diff(got, []Record{test.want}, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("got(-)/want(+)\n%s", diff)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name      string
		decl      Declaration
		wantField string
		wantIs    error
	}{
		{"value kind", Declaration{"name": "x", "type": "int", "value": "abc"}, FieldValue, pvdata.ErrValueKind},
		{"string from number", Declaration{"name": "x", "type": "string", "value": 5}, FieldValue, pvdata.ErrValueKind},
		{"int overflow", Declaration{"name": "x", "type": "int", "value": int64(1) << 40}, FieldValue, pvdata.ErrValueKind},
		{"enum label", Declaration{"name": "x", "type": "enum", "enums": []interface{}{"a", 1}}, FieldEnums, nil},
		{"state kind", Declaration{"name": "x", "states": []interface{}{"major"}}, FieldStates, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Normalize([]Declaration{test.decl})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Normalize = %v, want *SchemaError", err)
			}
			if se.Field != test.wantField {
				t.Errorf("Field = %q, want %q", se.Field, test.wantField)
			}
			if test.wantIs != nil && !errors.Is(err, test.wantIs) {
				t.Errorf("Normalize = %v, want %v", err, test.wantIs)
			}
		})
	}
}

func TestNormalizeUnknownType(t *testing.T) {
	_, err := Normalize([]Declaration{{"name": "ok"}, {"name": "c", "type": "complex"}})
	var u *pvdata.UnknownTypeError
	if !errors.As(err, &u) {
		t.Fatalf("Normalize = %v, want *pvdata.UnknownTypeError", err)
	}
	if u.Type != ait.Invalid {
		t.Errorf("Type = %v, want %v", u.Type, ait.Invalid)
	}
}

func TestTable(t *testing.T) {
	records, err := Normalize([]Declaration{
		{"name": "t1", "type": "int"},
		{"name": "t2", "type": "enum", "enums": []interface{}{"Stop", "Run"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defs := Table(records)
	if len(defs) != 2 {
		t.Fatalf("got %d defs, want 2", len(defs))
	}

	plain := defs[0]
	if len(plain.Enums) != 1 || plain.Enums[0] != nil {
		t.Errorf("t1 Enums = %v, want only the terminator", plain.Enums)
	}
	if diff := cmp.Diff(plain.States, []int32{native.StateTerminator}); diff != "" {
		t.Errorf("t1 States got(-)/want(+)\n%s", diff)
	}

	enum := defs[1]
	if len(enum.Enums) != 3 || enum.Enums[2] != nil {
		t.Fatalf("t2 Enums = %v, want 2 labels and a terminator", enum.Enums)
	}
	if diff := cmp.Diff(enum.EnumLabels(), []string{"Stop", "Run"}); diff != "" {
		t.Errorf("t2 labels got(-)/want(+)\n%s", diff)
	}
	if diff := cmp.Diff(enum.States, []int32{0, 0, native.StateTerminator}); diff != "" {
		t.Errorf("t2 States got(-)/want(+)\n%s", diff)
	}
	if enum.Type != ait.Enum16 || enum.Count != 1 || !enum.Soft {
		t.Errorf("t2 = %+v", enum)
	}

	// The records keep their true lengths and do not share value buffers.
	if len(records[1].Enums) != 2 || len(records[1].States) != 2 {
		t.Errorf("record lengths changed: %+v", records[1])
	}
	enum.Value[0] = 0xff
	if records[1].Value[0] == 0xff {
		t.Error("table value aliases record value")
	}
}

const exampleFile = `
pvs:
  - name: temperature
    type: double
    scan: 1
    prec: 2
    unit: C
    hihi: 90
    high: 70
    low: 10
    lolo: 0
    soft: false
  - name: mode
    type: enum
    enums: [Idle, Manual, Auto]
    value: 2
  - name: waveform
    type: float
    count: 4
    value: [0, 0.5, 1, 1.5]
`

func TestParse(t *testing.T) {
	decls, err := Parse([]byte(exampleFile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Validate(decls); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	records, err := Normalize(decls)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Record{
		{
			Name: "temperature", Type: ait.Float64, Count: 1, Scan: 1,
			Prec: 2, Unit: "C", Hihi: 90, High: 70, Low: 10,
			Value: mustEncode(t, ait.Float64, 0),
		},
		{
			Name: "mode", Type: ait.Enum16, Count: 1, Soft: true,
			Enums:  []string{"Idle", "Manual", "Auto"},
			States: []pvdata.Severity{0, 0, 0},
			Value:  mustEncode(t, ait.Enum16, 2),
		},
		{
			Name: "waveform", Type: ait.Float32, Count: 4, Soft: true,
			Value: mustEncode(t, ait.Float32, 0, 0.5, 1, 1.5),
		},
	}
	if diff := cmp.Diff(records, want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("got(-)/want(+)\n%s", diff)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	decls, err := Parse([]byte("pvs:\n  - name: x\n    units: mm\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var se *SchemaError
	if err := Validate(decls); !errors.As(err, &se) || se.Field != "units" {
		t.Errorf("Validate = %v, want unknown field \"units\"", err)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("pvs: [")); err == nil {
		t.Error("Parse succeeded on malformed YAML")
	}
}
