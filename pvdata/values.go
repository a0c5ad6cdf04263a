package pvdata

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/quentinmit/go-pcas/ait"
)

func check(n int, err error) error {
	return err
}

type Writer interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

type Reader interface {
	io.Reader
	io.ByteReader
}

type EncoderState struct {
	Buf       Writer
	ByteOrder binary.ByteOrder
}

func (s *EncoderState) WriteUint32(v uint32) error {
	bytes := make([]byte, 4)
	s.ByteOrder.PutUint32(bytes, v)
	return check(s.Buf.Write(bytes))
}
func (s *EncoderState) WriteUint64(v uint64) error {
	bytes := make([]byte, 8)
	s.ByteOrder.PutUint64(bytes, v)
	return check(s.Buf.Write(bytes))
}

type DecoderState struct {
	Buf       Reader
	ByteOrder binary.ByteOrder
}

func (s *DecoderState) ReadUint32() (uint32, error) {
	bytes := make([]byte, 4)
	if _, err := io.ReadFull(s.Buf, bytes); err != nil {
		return 0, err
	}
	return s.ByteOrder.Uint32(bytes), nil
}
func (s *DecoderState) ReadUint64() (uint64, error) {
	bytes := make([]byte, 8)
	if _, err := io.ReadFull(s.Buf, bytes); err != nil {
		return 0, err
	}
	return s.ByteOrder.Uint64(bytes), nil
}

// PVField is one fixed-width element of a native buffer.
type PVField interface {
	PVEncode(s *EncoderState) error
	PVDecode(s *DecoderState) error
	// Value returns the element as the host sees it.
	Value() interface{}
}

// Basic types (encode as normal, paying attention to endianness)

// PVInt carries both int32 and enum16 elements; the native side stores
// enum indices in a full 32-bit slot.
type PVInt int32

func (v *PVInt) PVEncode(s *EncoderState) error {
	return s.WriteUint32(uint32(*v))
}
func (v *PVInt) PVDecode(s *DecoderState) error {
	data, err := s.ReadUint32()
	if err != nil {
		return err
	}
	*v = PVInt(data)
	return nil
}
func (v *PVInt) Value() interface{} {
	return int32(*v)
}

type PVFloat float32

func (v *PVFloat) PVEncode(s *EncoderState) error {
	return s.WriteUint32(math.Float32bits(float32(*v)))
}
func (v *PVFloat) PVDecode(s *DecoderState) error {
	data, err := s.ReadUint32()
	if err != nil {
		return err
	}
	*v = PVFloat(math.Float32frombits(data))
	return nil
}
func (v *PVFloat) Value() interface{} {
	return float32(*v)
}

type PVDouble float64

func (v *PVDouble) PVEncode(s *EncoderState) error {
	return s.WriteUint64(math.Float64bits(float64(*v)))
}
func (v *PVDouble) PVDecode(s *DecoderState) error {
	data, err := s.ReadUint64()
	if err != nil {
		return err
	}
	*v = PVDouble(math.Float64frombits(data))
	return nil
}
func (v *PVDouble) Value() interface{} {
	return float64(*v)
}

// String types

// PVFixedString occupies exactly ait.MaxStringSize bytes: the string, a NUL
// terminator and NUL padding. Anything past ait.MaxStringSize-1 bytes is
// dropped on encode, cutting back to a rune boundary so the slot never holds
// a partial UTF-8 sequence.
type PVFixedString string

func (v *PVFixedString) PVEncode(s *EncoderState) error {
	w := NewSlotWriter(s.Buf, ait.MaxStringSize)
	if _, err := w.WriteString(truncate(string(*v), ait.MaxStringSize-1)); err != nil {
		return err
	}
	return check(w.Pad())
}
func (v *PVFixedString) PVDecode(s *DecoderState) error {
	bytes := make([]byte, ait.MaxStringSize)
	if _, err := io.ReadFull(s.Buf, bytes); err != nil {
		return err
	}
	for i, b := range bytes {
		if b == 0 {
			bytes = bytes[:i]
			break
		}
	}
	*v = PVFixedString(bytes)
	return nil
}
func (v *PVFixedString) Value() interface{} {
	return string(*v)
}

func truncate(str string, max int) string {
	if len(str) <= max {
		return str
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(str[cut]) {
		cut--
	}
	return str[:cut]
}
