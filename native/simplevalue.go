package native

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/pvdata"
)

// ErrAlreadyReleased is returned when a native buffer is released twice.
var ErrAlreadyReleased = errors.New("native buffer already released")

// SimpleValue is the single wire shape for values crossing the boundary in
// either direction: a type tag, an element count and a raw buffer of exactly
// Count elements.
//
// Ownership follows whoever allocated Buffer. Values built by the host with a
// struct literal are host-owned and need no release. Values the native side
// allocates for a single call are created with NewOwned and must be released
// by the receiver exactly once.
type SimpleValue struct {
	Type   ait.Enum
	Count  int
	Buffer []byte

	released int32
	release  func() error
}

// NewOwned returns a value whose buffer is released by calling release.
func NewOwned(tag ait.Enum, count int, buf []byte, release func() error) *SimpleValue {
	return &SimpleValue{Type: tag, Count: count, Buffer: buf, release: release}
}

// Release returns an owned buffer to the side that allocated it. The first
// call releases; later calls return ErrAlreadyReleased. On a host-owned value
// it is a no-op.
func (v *SimpleValue) Release() error {
	if v.release == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&v.released, 0, 1) {
		return ErrAlreadyReleased
	}
	v.Buffer = nil
	return v.release()
}

// Check verifies that the buffer length matches Count elements of Type.
func (v *SimpleValue) Check() error {
	if err := pvdata.CheckBuffer(v.Buffer, v.Type, v.Count); err != nil {
		return fmt.Errorf("%v[%d]: %w", v.Type, v.Count, err)
	}
	return nil
}

func (v *SimpleValue) String() string {
	return fmt.Sprintf("{%v count=%d len=%d}", v.Type, v.Count, len(v.Buffer))
}
