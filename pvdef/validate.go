package pvdef

import (
	"math"
	"reflect"
	"strconv"
)

type fieldCheck struct {
	reason string
	ok     func(v interface{}) bool
}

var fieldChecks = map[string]fieldCheck{
	FieldName:   {"must be a string", isString},
	FieldType:   {"must be a string", isString},
	FieldCount:  {"must be an integer >= 1", isCount},
	FieldScan:   {"must be a number", isNumber},
	FieldEnums:  {"must be an array", isArray},
	FieldStates: {"must be an array", isArray},
	FieldPrec:   {"must be an integer", isInteger},
	FieldUnit:   {"must be a string", isString},
	FieldHilim:  {"must be a number", isNumber},
	FieldLolim:  {"must be a number", isNumber},
	FieldHigh:   {"must be a number", isNumber},
	FieldLow:    {"must be a number", isNumber},
	FieldHihi:   {"must be a number", isNumber},
	FieldLolo:   {"must be a number", isNumber},
	FieldMdel:   {"must be a number", isNumber},
	FieldAdel:   {"must be a number", isNumber},
	FieldSoft:   {"must be a boolean", isBool},
}

// Validate checks every declaration and returns a *SchemaError for the first
// violation. It neither modifies the declarations nor touches the native
// server.
//
// The type name is only checked to be a string here; an unknown type is
// reported by Normalize.
func Validate(decls []Declaration) error {
	seen := make(map[string]int, len(decls))
	for i, d := range decls {
		if err := validateOne(i, d); err != nil {
			return err
		}
		name := d.Name()
		if prev, ok := seen[name]; ok {
			return &SchemaError{Index: i, PV: name, Field: FieldName, Reason: "duplicates declaration #" + strconv.Itoa(prev)}
		}
		seen[name] = i
	}
	return nil
}

func validateOne(i int, d Declaration) error {
	if _, ok := d[FieldName]; !ok {
		return &SchemaError{Index: i, Reason: "name is not specified"}
	}
	name := d.Name()
	if unknown := d.unknownFields(); len(unknown) > 0 {
		return &SchemaError{Index: i, PV: name, Field: unknown[0], Reason: "field is not supported"}
	}
	for _, field := range Fields {
		v, ok := d[field]
		if !ok {
			continue
		}
		if field == FieldValue {
			if reason := checkValueShape(d, v); reason != "" {
				return &SchemaError{Index: i, PV: name, Field: field, Reason: reason}
			}
			continue
		}
		if c := fieldChecks[field]; !c.ok(v) {
			return &SchemaError{Index: i, PV: name, Field: field, Reason: c.reason}
		}
	}
	if name == "" {
		return &SchemaError{Index: i, Field: FieldName, Reason: "must not be empty"}
	}
	return nil
}

// checkValueShape enforces that value is a scalar when count is absent or 1
// and an array of exactly count elements otherwise.
func checkValueShape(d Declaration, v interface{}) string {
	count := 1
	if c, ok := d[FieldCount]; ok {
		count, _ = intValue(c)
	}
	if count <= 1 {
		if isArray(v) {
			return "must be a scalar when count is 1"
		}
		return ""
	}
	if !isArray(v) {
		return "must be an array of count elements"
	}
	if n := reflect.ValueOf(v).Len(); n != count {
		return "has " + strconv.Itoa(n) + " elements, count is " + strconv.Itoa(count)
	}
	return ""
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func isArray(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func isNumber(v interface{}) bool {
	_, ok := floatValue(v)
	return ok
}

func isInteger(v interface{}) bool {
	_, ok := intValue(v)
	return ok
}

func isCount(v interface{}) bool {
	n, ok := intValue(v)
	return ok && n >= 1
}

// floatValue accepts any Go number. Booleans are not numbers.
func floatValue(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// intValue accepts integers of any Go kind and floats with an integral
// value, since JSON and some YAML emitters produce 3.0 for 3.
func intValue(v interface{}) (int, bool) {
	f, ok := floatValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
