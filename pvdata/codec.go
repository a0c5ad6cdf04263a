package pvdata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/quentinmit/go-pcas/ait"
)

// The native server shares our address space, so buffers use host byte order.
var nativeOrder binary.ByteOrder = binary.NativeEndian

// BufferSize returns the number of bytes count elements of tag occupy.
func BufferSize(tag ait.Enum, count int) (int, error) {
	size, ok := tag.Size()
	if !ok {
		return 0, &UnknownTypeError{Type: tag}
	}
	if count < 0 {
		return 0, fmt.Errorf("negative element count %d", count)
	}
	return size * count, nil
}

// CheckBuffer verifies that buf holds exactly count elements of tag.
func CheckBuffer(buf []byte, tag ait.Enum, count int) error {
	want, err := BufferSize(tag, count)
	if err != nil {
		return err
	}
	if len(buf) != want {
		return &ProtocolMismatchError{What: "buffer length", Got: len(buf), Want: want}
	}
	return nil
}

// Encode packs values into a new buffer laid out for tag.
func Encode(tag ait.Enum, values []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	s := &EncoderState{Buf: &buf, ByteOrder: nativeOrder}
	if err := EncodeState(s, tag, values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeInto packs values into buf, which must be sized for exactly
// len(values) elements of tag. buf is written only if every element
// converts, so a failed call leaves it untouched.
func EncodeInto(buf []byte, tag ait.Enum, values []interface{}) error {
	if err := CheckBuffer(buf, tag, len(values)); err != nil {
		return err
	}
	data, err := Encode(tag, values)
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

// EncodeState writes values to s one element at a time.
func EncodeState(s *EncoderState, tag ait.Enum, values []interface{}) error {
	for i, v := range values {
		f, err := valueToPVField(tag, v)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		if err := f.PVEncode(s); err != nil {
			return err
		}
	}
	return nil
}

// Decode unpacks count elements of tag from buf. buf must be exactly the
// size count elements occupy.
func Decode(buf []byte, tag ait.Enum, count int) ([]interface{}, error) {
	if err := CheckBuffer(buf, tag, count); err != nil {
		return nil, err
	}
	s := &DecoderState{Buf: bytes.NewReader(buf), ByteOrder: nativeOrder}
	return DecodeState(s, tag, count)
}

// DecodeState reads count elements of tag from s.
func DecodeState(s *DecoderState, tag ait.Enum, count int) ([]interface{}, error) {
	out := make([]interface{}, count)
	for i := range out {
		f, err := newField(tag)
		if err != nil {
			return nil, err
		}
		if err := f.PVDecode(s); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f.Value()
	}
	return out, nil
}

// Zero returns a zeroed buffer for count elements of tag.
func Zero(tag ait.Enum, count int) ([]byte, error) {
	n, err := BufferSize(tag, count)
	if err != nil {
		return nil, err
	}
	return make([]byte, n), nil
}
