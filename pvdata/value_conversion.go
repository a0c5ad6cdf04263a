package pvdata

import (
	"fmt"
	"math"
	"reflect"

	"github.com/quentinmit/go-pcas/ait"
)

// Sequence returns the elements of a host value. A scalar becomes a
// one-element sequence; slices and arrays (and pointers to any of these) are
// flattened one level. A nil value yields ErrNoValue.
func Sequence(v interface{}) ([]interface{}, error) {
	switch v := v.(type) {
	case nil:
		return nil, ErrNoValue
	case []interface{}:
		return v, nil
	case string:
		return []interface{}{v}, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, ErrNoValue
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return []interface{}{rv.Interface()}, nil
}

// HostValue converts decoded elements into the form handed to host code: a
// bare element when there is exactly one, otherwise a typed slice
// ([]int32, []float32, []float64 or []string).
func HostValue(tag ait.Enum, values []interface{}) (interface{}, error) {
	if len(values) == 1 {
		return values[0], nil
	}
	switch tag {
	case ait.Int32, ait.Enum16:
		out := make([]int32, len(values))
		for i, v := range values {
			out[i] = v.(int32)
		}
		return out, nil
	case ait.Float32:
		out := make([]float32, len(values))
		for i, v := range values {
			out[i] = v.(float32)
		}
		return out, nil
	case ait.Float64:
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = v.(float64)
		}
		return out, nil
	case ait.String:
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = v.(string)
		}
		return out, nil
	}
	return nil, &UnknownTypeError{Type: tag}
}

// newField returns a zero element for tag, ready to decode into.
func newField(tag ait.Enum) (PVField, error) {
	switch tag {
	case ait.Int32, ait.Enum16:
		return new(PVInt), nil
	case ait.Float32:
		return new(PVFloat), nil
	case ait.Float64:
		return new(PVDouble), nil
	case ait.String:
		return new(PVFixedString), nil
	}
	return nil, &UnknownTypeError{Type: tag}
}

// valueToPVField converts one host element to the field for tag.
// Numbers of any Go kind are accepted for numeric tags; integers are range
// checked and floats are truncated toward zero, as a C cast would.
func valueToPVField(tag ait.Enum, v interface{}) (PVField, error) {
	if !tag.Supported() {
		return nil, &UnknownTypeError{Type: tag}
	}
	if f, ok := v.(PVField); ok {
		v = f.Value()
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch tag {
	case ait.String:
		if rv.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %T is not a string", ErrValueKind, v)
		}
		s := PVFixedString(rv.String())
		return &s, nil
	case ait.Int32, ait.Enum16:
		n, err := toInt64(rv)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d overflows int32", ErrValueKind, n)
		}
		i := PVInt(n)
		return &i, nil
	case ait.Float32:
		x, err := toFloat64(rv)
		if err != nil {
			return nil, err
		}
		f := PVFloat(x)
		return &f, nil
	default:
		x, err := toFloat64(rv)
		if err != nil {
			return nil, err
		}
		d := PVDouble(x)
		return &d, nil
	}
}

func toInt64(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrValueKind, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %v is not finite", ErrValueKind, f)
		}
		f = math.Trunc(f)
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v overflows int64", ErrValueKind, f)
		}
		return int64(f), nil
	}
	return 0, kindError(rv)
}

func toFloat64(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, kindError(rv)
}

func kindError(rv reflect.Value) error {
	if !rv.IsValid() {
		return fmt.Errorf("%w: nil element", ErrValueKind)
	}
	return fmt.Errorf("%w: %s is not a number", ErrValueKind, rv.Type())
}
