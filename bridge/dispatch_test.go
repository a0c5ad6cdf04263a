package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/native"
)

func TestSerialDispatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := NewSerialDispatcher(ctx, 4)

	var running, overlaps int32
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Dispatch(func() {
				if atomic.AddInt32(&running, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				count++
				atomic.AddInt32(&running, -1)
			})
			if err != nil {
				t.Errorf("Dispatch: %v", err)
			}
		}()
	}
	wg.Wait()
	if overlaps != 0 {
		t.Errorf("%d calls overlapped", overlaps)
	}
	if count != 50 {
		t.Errorf("ran %d calls, want 50", count)
	}
}

func TestSerialDispatcherClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewSerialDispatcher(ctx, 0)
	cancel()
	<-d.Done()

	ran := false
	if err := d.Dispatch(func() { ran = true }); err != ErrDispatcherClosed {
		t.Errorf("Dispatch = %v, want %v", err, ErrDispatcherClosed)
	}
	if ran {
		t.Error("call ran after the dispatcher stopped")
	}
}

func TestBridgeWithSerialDispatcher(t *testing.T) {
	ctx, _ := testContext(t)
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var got interface{}
	b := New(ctx, Drivers{
		Read:  func(string) interface{} { return 7 },
		Write: func(_ string, v interface{}) { got = v },
	}, WithDispatcher(NewSerialDispatcher(dctx, 1)))

	out := &native.SimpleValue{Type: ait.Int32, Count: 1, Buffer: make([]byte, 4)}
	if updated, err := b.Read("x", out); !updated || err != nil {
		t.Fatalf("Read = %v, %v", updated, err)
	}
	if err := b.Write("x", out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != int32(7) {
		t.Errorf("write driver got %v (%T), want int32(7)", got, got)
	}
}
