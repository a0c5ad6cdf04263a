package pvdata

import (
	"errors"
	"fmt"

	"github.com/quentinmit/go-pcas/ait"
)

var (
	// ErrNoValue means a host value was nil where one was required.
	ErrNoValue = errors.New("no value")
	// ErrValueKind means a host value cannot be represented by the target type.
	ErrValueKind = errors.New("value not representable")
)

// ProtocolMismatchError reports a disagreement between the shape of a value
// and the shape the native side expects for the PV. The transfer it refers to
// did not happen.
type ProtocolMismatchError struct {
	// What is being compared, e.g. "element count" or "buffer length".
	What string
	Got  int
	Want int
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("%s %d does not match expected %d", e.What, e.Got, e.Want)
}

// UnknownTypeError means a tag outside the supported set reached the codec.
// This is an internal defect, never a user error.
type UnknownTypeError struct {
	Type ait.Enum
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unsupported type tag %v", e.Type)
}

// IsMismatch reports whether err is a *ProtocolMismatchError.
func IsMismatch(err error) bool {
	var m *ProtocolMismatchError
	return errors.As(err, &m)
}
