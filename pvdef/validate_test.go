package pvdef

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		decls []Declaration
		// want is the expected error, or nil for a valid table.
		want *SchemaError
	}{
		{
			name:  "minimal",
			decls: []Declaration{{"name": "t1", "type": "int"}},
		},
		{
			name: "full",
			decls: []Declaration{{
				"name": "t3", "type": "double", "count": 3, "scan": 0.5,
				"prec": 2, "unit": "mm", "hilim": 10, "lolim": -10.0,
				"high": 5, "low": -5, "hihi": 8, "lolo": -8, "mdel": 0.1, "adel": 0,
				"soft": false, "value": []interface{}{1, 2.5, 3},
			}},
		},
		{
			name:  "integral float count",
			decls: []Declaration{{"name": "a", "count": 2.0, "value": []float64{1, 2}}},
		},
		{
			name:  "enum",
			decls: []Declaration{{"name": "t2", "type": "enum", "enums": []interface{}{"Stop", "Run"}, "value": 1}},
		},
		{
			name:  "missing name",
			decls: []Declaration{{"name": "ok"}, {"type": "int"}},
			want:  &SchemaError{Index: 1, Reason: "name is not specified"},
		},
		{
			name:  "unknown field",
			decls: []Declaration{{"name": "x", "zeta": 1, "alpha": 2}},
			want:  &SchemaError{Index: 0, PV: "x", Field: "alpha", Reason: "field is not supported"},
		},
		{
			name:  "name not string",
			decls: []Declaration{{"name": 7}},
			want:  &SchemaError{Index: 0, Field: FieldName, Reason: "must be a string"},
		},
		{
			name:  "empty name",
			decls: []Declaration{{"name": ""}},
			want:  &SchemaError{Index: 0, Field: FieldName, Reason: "must not be empty"},
		},
		{
			name:  "count string",
			decls: []Declaration{{"name": "x", "count": "3"}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldCount, Reason: "must be an integer >= 1"},
		},
		{
			name:  "count zero",
			decls: []Declaration{{"name": "x", "count": 0}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldCount, Reason: "must be an integer >= 1"},
		},
		{
			name:  "scan bool",
			decls: []Declaration{{"name": "x", "scan": true}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldScan, Reason: "must be a number"},
		},
		{
			name:  "enums not array",
			decls: []Declaration{{"name": "x", "enums": "Stop"}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldEnums, Reason: "must be an array"},
		},
		{
			name:  "prec fractional",
			decls: []Declaration{{"name": "x", "prec": 1.5}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldPrec, Reason: "must be an integer"},
		},
		{
			name:  "soft string",
			decls: []Declaration{{"name": "x", "soft": "yes"}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldSoft, Reason: "must be a boolean"},
		},
		{
			name:  "array value for scalar",
			decls: []Declaration{{"name": "x", "value": []interface{}{1, 2}}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldValue, Reason: "must be a scalar when count is 1"},
		},
		{
			name:  "scalar value for array",
			decls: []Declaration{{"name": "x", "count": 3, "value": 1}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldValue, Reason: "must be an array of count elements"},
		},
		{
			name:  "short array value",
			decls: []Declaration{{"name": "x", "count": 3, "value": []int{1, 2}}},
			want:  &SchemaError{Index: 0, PV: "x", Field: FieldValue, Reason: "has 2 elements, count is 3"},
		},
		{
			name:  "duplicate name",
			decls: []Declaration{{"name": "x"}, {"name": "y"}, {"name": "x"}},
			want:  &SchemaError{Index: 2, PV: "x", Field: FieldName, Reason: "duplicates declaration #0"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Validate(test.decls)
			if test.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var got *SchemaError
			if !errors.As(err, &got) {
				t.Fatalf("Validate = %v, want *SchemaError", err)
			}
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("got(-)/want(+)\n%s", diff)
			}
		})
	}
}

func TestValidateDoesNotModify(t *testing.T) {
	decls := []Declaration{{"name": "x", "type": "int"}}
	if err := Validate(decls); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(decls, []Declaration{{"name": "x", "type": "int"}}); diff != "" {
		t.Errorf("declarations changed: got(-)/want(+)\n%s", diff)
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	tests := []struct {
		err  *SchemaError
		want string
	}{
		{&SchemaError{Index: 3, Reason: "name is not specified"}, `PV #3: name is not specified`},
		{&SchemaError{PV: "x", Field: "count", Reason: "must be an integer >= 1"}, `PV "x": field "count": must be an integer >= 1`},
		{&SchemaError{PV: "x", Field: "value", Reason: "invalid value", Err: errors.New("boom")}, `PV "x": field "value": invalid value: boom`},
	}
	for _, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Errorf("Error() = %q, want %q", got, test.want)
		}
	}
}
