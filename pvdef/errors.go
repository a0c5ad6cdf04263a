package pvdef

import "fmt"

// SchemaError reports the first invalid declaration found. Registration must
// not proceed after one.
type SchemaError struct {
	// Index is the position of the offending declaration.
	Index int
	// PV is the declared name, if it had one.
	PV     string
	Field  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	pv := e.PV
	if pv == "" {
		pv = fmt.Sprintf("#%d", e.Index)
	} else {
		pv = fmt.Sprintf("%q", pv)
	}
	msg := fmt.Sprintf("PV %s", pv)
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
