package pvdata

import (
	"errors"
	"io"
)

// ErrSlotOverflow is returned when a write would leave no room for the
// terminating NUL of a fixed-width slot.
var ErrSlotOverflow = errors.New("fixed-width slot overflow")

// SlotWriter writes values into fixed-width, NUL-padded slots.
type SlotWriter struct {
	inSlot int
	width  int
	out    io.Writer
}

func NewSlotWriter(out io.Writer, width int) *SlotWriter {
	return &SlotWriter{out: out, width: width}
}

func (w *SlotWriter) Write(p []byte) (n int, err error) {
	if w.inSlot+len(p) > w.width-1 {
		return 0, ErrSlotOverflow
	}
	n, err = w.out.Write(p)
	w.inSlot += n
	return
}

func (w *SlotWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Pad fills the rest of the current slot with NULs and starts a new one.
// An empty slot is written as width NULs.
func (w *SlotWriter) Pad() (int, error) {
	n, err := w.out.Write(make([]byte, w.width-w.inSlot))
	w.inSlot = 0
	return n, err
}
