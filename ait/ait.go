// Package ait holds the architecture-independent type tags shared with the
// native channel access server.
package ait

import "fmt"

// MaxStringSize is the width in bytes of one fixed-width string slot,
// including the NUL terminator. Strings longer than MaxStringSize-1 bytes are
// truncated when encoded.
const MaxStringSize = 40

// Enum identifies the representation of a value in a native buffer.
type Enum int32

const (
	Invalid Enum = iota
	Int8
	Uint8
	Int16
	Uint16
	Enum16
	Int32
	Uint32
	Float32
	Float64
	FixedString
	String
	Container
)

var enumNames = map[Enum]string{
	Invalid:     "aitEnumInvalid",
	Int8:        "aitEnumInt8",
	Uint8:       "aitEnumUint8",
	Int16:       "aitEnumInt16",
	Uint16:      "aitEnumUint16",
	Enum16:      "aitEnumEnum16",
	Int32:       "aitEnumInt32",
	Uint32:      "aitEnumUint32",
	Float32:     "aitEnumFloat32",
	Float64:     "aitEnumFloat64",
	FixedString: "aitEnumFixedString",
	String:      "aitEnumString",
	Container:   "aitEnumContainer",
}

func (e Enum) String() string {
	if s, ok := enumNames[e]; ok {
		return s
	}
	return fmt.Sprintf("aitEnum(%d)", int32(e))
}

// PV type names accepted in declarations.
const (
	PVTypeInt    = "int"
	PVTypeFloat  = "float"
	PVTypeDouble = "double"
	PVTypeString = "string"
	PVTypeEnum   = "enum"
)

var pvTypes = map[string]Enum{
	PVTypeInt:    Int32,
	PVTypeFloat:  Float32,
	PVTypeDouble: Float64,
	PVTypeString: String,
	PVTypeEnum:   Enum16,
}

// FromPVType maps a declared PV type name to its tag.
// Unrecognized names map to Invalid; the caller decides whether that is fatal.
func FromPVType(pvType string) Enum {
	if e, ok := pvTypes[pvType]; ok {
		return e
	}
	return Invalid
}

// PVType is the reverse of FromPVType. It reports false for tags no
// declaration can produce.
func (e Enum) PVType() (string, bool) {
	for name, tag := range pvTypes {
		if tag == e {
			return name, true
		}
	}
	return "", false
}

// Size returns the width in bytes of one element of e as laid out in a
// native buffer. Enum16 values travel as 32-bit integers.
// Only the tags a declaration can produce have a size.
func (e Enum) Size() (int, bool) {
	switch e {
	case Int32, Enum16, Float32:
		return 4, true
	case Float64:
		return 8, true
	case String:
		return MaxStringSize, true
	}
	return 0, false
}

// Supported reports whether e can be encoded and decoded at the boundary.
func (e Enum) Supported() bool {
	_, ok := e.Size()
	return ok
}
