package bridge

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
)

func testContext(t *testing.T) (context.Context, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return ctxlog.WithLogger(context.Background(), logrus.NewEntry(logger)), hook
}

func filled(n int) []byte {
	return bytes.Repeat([]byte{0xaa}, n)
}

func encode(t *testing.T, tag ait.Enum, values ...interface{}) []byte {
	t.Helper()
	buf, err := pvdata.Encode(tag, values)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestReadCountMismatch(t *testing.T) {
	ctx, hook := testContext(t)
	b := New(ctx, Drivers{Read: func(string) interface{} { return []int{1, 2, 3} }})
	out := &native.SimpleValue{Type: ait.Int32, Count: 5, Buffer: filled(20)}

	updated, err := b.Read("wave", out)
	if updated {
		t.Error("updated = true, want false")
	}
	var m *pvdata.ProtocolMismatchError
	if !errors.As(err, &m) {
		t.Fatalf("Read = %v, want *pvdata.ProtocolMismatchError", err)
	}
	if diff := cmp.Diff(m, &pvdata.ProtocolMismatchError{What: "element count", Got: 3, Want: 5}); diff != "" {
		t.Errorf("got(-)/want(+)\n%s", diff)
	}
	if diff := cmp.Diff(out.Buffer, filled(20)); diff != "" {
		t.Errorf("buffer written: got(-)/want(+)\n%s", diff)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("last log entry = %v, want a warning", entry)
	}
	if got := entry.Data[ctxlog.FieldPV]; got != "wave" {
		t.Errorf("pv field = %v, want %q", got, "wave")
	}
}

func TestReadNoData(t *testing.T) {
	ctx, hook := testContext(t)
	b := New(ctx, Drivers{Read: func(string) interface{} { return nil }})
	out := &native.SimpleValue{Type: ait.Float64, Count: 1, Buffer: filled(8)}

	updated, err := b.Read("idle", out)
	if updated || err != nil {
		t.Errorf("Read = %v, %v; want false, nil", updated, err)
	}
	if diff := cmp.Diff(out.Buffer, filled(8)); diff != "" {
		t.Errorf("buffer written: got(-)/want(+)\n%s", diff)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.DebugLevel {
		t.Errorf("last log entry = %v, want a debug message", entry)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name   string
		tag    ait.Enum
		count  int
		result interface{}
		want   []byte
	}{
		{"int scalar", ait.Int32, 1, 42, encode(t, ait.Int32, 42)},
		{"float scalar", ait.Float32, 1, 1.5, encode(t, ait.Float32, 1.5)},
		{"double array", ait.Float64, 3, []float64{1, 2, 3}, encode(t, ait.Float64, 1.0, 2.0, 3.0)},
		{"enum", ait.Enum16, 1, int32(1), encode(t, ait.Enum16, 1)},
		{"string", ait.String, 1, "hi", encode(t, ait.String, "hi")},
		{"string array", ait.String, 2, []interface{}{"a", "b"}, encode(t, ait.String, "a", "b")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, _ := testContext(t)
			var gotName string
			b := New(ctx, Drivers{Read: func(name string) interface{} {
				gotName = name
				return test.result
			}})
			out := &native.SimpleValue{Type: test.tag, Count: test.count, Buffer: make([]byte, len(test.want))}
			updated, err := b.Read("pv1", out)
			if err != nil || !updated {
				t.Fatalf("Read = %v, %v; want true, nil", updated, err)
			}
			if gotName != "pv1" {
				t.Errorf("driver called with %q", gotName)
			}
			if diff := cmp.Diff(out.Buffer, test.want); diff != "" {
				t.Errorf("got(-)/want(+)\n%s", diff)
			}
		})
	}
}

func TestReadBadElement(t *testing.T) {
	ctx, _ := testContext(t)
	b := New(ctx, Drivers{Read: func(string) interface{} { return []interface{}{1, "two"} }})
	out := &native.SimpleValue{Type: ait.Int32, Count: 2, Buffer: filled(8)}

	if _, err := b.Read("x", out); !errors.Is(err, pvdata.ErrValueKind) {
		t.Errorf("Read = %v, want %v", err, pvdata.ErrValueKind)
	}
	if diff := cmp.Diff(out.Buffer, filled(8)); diff != "" {
		t.Errorf("buffer partially written: got(-)/want(+)\n%s", diff)
	}
}

func TestReadUnknownType(t *testing.T) {
	ctx, hook := testContext(t)
	b := New(ctx, Drivers{Read: func(string) interface{} { return 1 }})
	out := &native.SimpleValue{Type: ait.Uint16, Count: 1, Buffer: filled(2)}

	_, err := b.Read("x", out)
	var u *pvdata.UnknownTypeError
	if !errors.As(err, &u) {
		t.Fatalf("Read = %v, want *pvdata.UnknownTypeError", err)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel {
		t.Errorf("last log entry = %v, want an error", entry)
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name  string
		tag   ait.Enum
		count int
		buf   []byte
		want  interface{}
	}{
		{"enum", ait.Enum16, 1, encode(t, ait.Enum16, 1), int32(1)},
		{"int", ait.Int32, 1, encode(t, ait.Int32, -3), int32(-3)},
		{"float", ait.Float32, 1, encode(t, ait.Float32, 0.5), float32(0.5)},
		{"double array", ait.Float64, 2, encode(t, ait.Float64, 1.0, 2.0), []float64{1, 2}},
		{"string", ait.String, 1, encode(t, ait.String, "Run"), "Run"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, _ := testContext(t)
			var gotName string
			var got interface{}
			b := New(ctx, Drivers{Write: func(name string, value interface{}) {
				gotName, got = name, value
			}})
			in := &native.SimpleValue{Type: test.tag, Count: test.count, Buffer: test.buf}
			if err := b.Write("t2", in); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if gotName != "t2" {
				t.Errorf("driver called with %q", gotName)
			}
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("got(-)/want(+)\n%s", diff)
			}
		})
	}
}

func TestWriteBadBuffer(t *testing.T) {
	ctx, _ := testContext(t)
	called := false
	b := New(ctx, Drivers{Write: func(string, interface{}) { called = true }})

	err := b.Write("x", &native.SimpleValue{Type: ait.Int32, Count: 2, Buffer: make([]byte, 4)})
	if !pvdata.IsMismatch(err) {
		t.Errorf("Write = %v, want a mismatch", err)
	}
	if called {
		t.Error("write driver called with a short buffer")
	}
}

func TestCallbacks(t *testing.T) {
	ctx, _ := testContext(t)
	b := New(ctx, Drivers{})
	if b.ReadCallback() != nil || b.WriteCallback() != nil {
		t.Error("callbacks installed without drivers")
	}
	b = New(ctx, Drivers{
		Read:  func(string) interface{} { return nil },
		Write: func(string, interface{}) {},
	})
	if b.ReadCallback() == nil || b.WriteCallback() == nil {
		t.Error("callbacks missing with drivers")
	}
}
