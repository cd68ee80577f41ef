package payload

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ints := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 65535}
	floats := []float32{0, 1.5, -1000001, float32(math.Inf(1)), math.SmallestNonzeroFloat32}
	blobs := [][]byte{{}, []byte("x"), []byte(`{"red":"time"}`)}

	w := New()
	for _, v := range ints {
		w.WriteInt64(v)
	}
	for _, v := range floats {
		w.WriteFloat32(v)
	}
	for _, b := range blobs {
		w.WriteBytes(b)
	}
	w.WriteString("green")

	r := FromBytes(w.Bytes())
	for i, want := range ints {
		if got := r.ReadInt64(); got != want {
			t.Errorf("int %d: got %d, want %d", i, got, want)
		}
	}
	for i, want := range floats {
		if got := r.ReadFloat32(); got != want {
			t.Errorf("float %d: got %v, want %v", i, got, want)
		}
	}
	for i, want := range blobs {
		if got := r.ReadBytes(); !bytes.Equal(got, want) {
			t.Errorf("blob %d: got %q, want %q", i, got, want)
		}
	}
	if got := r.ReadString(); got != "green" {
		t.Errorf("string: got %q", got)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining after full read: %d", r.Remaining())
	}
}

func TestLittleEndianLayout(t *testing.T) {
	p := New()
	p.WriteInt64(1)
	p.WriteFloat32(1)
	want := []byte{1, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x00, 0x80, 0x3f}
	if !bytes.Equal(p.Bytes(), want) {
		t.Fatalf("got % x, want % x", p.Bytes(), want)
	}
}

func TestPreallocatedStartsEmpty(t *testing.T) {
	p := Preallocated(64)
	if len(p.Bytes()) != 0 || cap(p.Bytes()) != 64 {
		t.Fatalf("len %d cap %d", len(p.Bytes()), cap(p.Bytes()))
	}
}

func TestRemainingTracksCursor(t *testing.T) {
	p := New()
	p.WriteInt64(7)
	p.WriteFloat32(2)
	r := FromBytes(p.Bytes())
	if r.Remaining() != 12 {
		t.Fatalf("remaining %d", r.Remaining())
	}
	r.ReadInt64()
	if r.Remaining() != 4 {
		t.Fatalf("remaining %d", r.Remaining())
	}
}

func TestZeroLengthBytesAtEnd(t *testing.T) {
	p := New()
	p.WriteInt64(0)
	r := FromBytes(p.Bytes())
	if got := r.ReadBytes(); got == nil || len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func expectViolation(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		v := recover()
		if v == nil {
			t.Fatalf("%s: expected panic", op)
		}
		err, ok := v.(error)
		if !ok {
			t.Fatalf("%s: panic value %v is not an error", op, v)
		}
		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: panic value %T is not a *ProtocolError", op, v)
		}
		if pe.Op != op {
			t.Errorf("op = %q, want %q", pe.Op, op)
		}
	}()
	fn()
}

func TestReadPastEndPanics(t *testing.T) {
	expectViolation(t, "ReadInt64", func() { FromBytes([]byte{1, 2, 3}).ReadInt64() })
	expectViolation(t, "ReadFloat32", func() { FromBytes([]byte{1}).ReadFloat32() })

	p := New()
	p.WriteInt64(10)
	p.WriteFloat32(1)
	expectViolation(t, "ReadBytes", func() { FromBytes(p.Bytes()).ReadBytes() })

	n := New()
	n.WriteInt64(-4)
	expectViolation(t, "ReadBytes", func() { FromBytes(n.Bytes()).ReadBytes() })
}

func TestReadStringRejectsInvalidUTF8(t *testing.T) {
	p := New()
	p.WriteBytes([]byte{0xff, 0xfe})
	expectViolation(t, "ReadString", func() { FromBytes(p.Bytes()).ReadString() })
}
