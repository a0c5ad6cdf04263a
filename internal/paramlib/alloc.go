package paramlib

import (
	"sync"

	"github.com/quentinmit/go-pcas/native"
)

// allocator hands out buffers that must be released exactly once, so leaks
// and double releases by the host are observable.
type allocator struct {
	mu          sync.Mutex
	next        uint64
	outstanding map[uint64]int
}

func newAllocator() *allocator {
	return &allocator{outstanding: make(map[uint64]int)}
}

// alloc returns a zeroed buffer of n bytes and the function releasing it.
func (a *allocator) alloc(n int) ([]byte, func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	id := a.next
	a.outstanding[id] = n
	return make([]byte, n), func() error {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.outstanding[id]; !ok {
			return native.ErrAlreadyReleased
		}
		delete(a.outstanding, id)
		return nil
	}
}

// count returns the number of buffers not yet released.
func (a *allocator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outstanding)
}
