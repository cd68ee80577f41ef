// Package payload implements the length-prefixed binary calling convention
// shared by lighting units and their host.
//
// A Payload is written in declared order and read back in the same order.
// There are no type tags: both sides agree on the schema per operation.
// Integers are 8-byte little-endian signed, floats are 4-byte little-endian
// IEEE-754, and byte blobs carry an int64 length prefix.
//
// Reading past the end of the buffer is a protocol violation and panics with
// a *ProtocolError; a conformant host never sends such a payload.
package payload

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// ProtocolError is the panic value raised when a payload or a channel
// address breaks the host contract.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation in %s: %s", e.Op, e.Detail)
}

// Violation panics with a *ProtocolError.
func Violation(op, format string, args ...any) {
	panic(&ProtocolError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// Payload is a byte buffer with a read cursor.
type Payload struct {
	buf []byte
	pos int
}

// New returns an empty payload ready for writing.
func New() *Payload { return &Payload{} }

// Preallocated returns an empty payload with room for size bytes.
func Preallocated(size int) *Payload { return &Payload{buf: make([]byte, 0, size)} }

// FromBytes wraps b for reading. The payload takes ownership of b.
func FromBytes(b []byte) *Payload { return &Payload{buf: b} }

// Bytes returns everything written so far.
func (p *Payload) Bytes() []byte { return p.buf }

// Remaining reports how many bytes are left to read.
func (p *Payload) Remaining() int { return len(p.buf) - p.pos }

// WriteInt64 appends v as 8 little-endian bytes.
func (p *Payload) WriteInt64(v int64) {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, uint64(v))
}

// WriteFloat32 appends v as 4 little-endian IEEE-754 bytes.
func (p *Payload) WriteFloat32(v float32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, math.Float32bits(v))
}

// WriteBytes writes the length of b followed by b itself.
func (p *Payload) WriteBytes(b []byte) {
	p.WriteInt64(int64(len(b)))
	p.buf = append(p.buf, b...)
}

// WriteString appends s as UTF-8 bytes behind a length prefix.
func (p *Payload) WriteString(s string) {
	p.WriteInt64(int64(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *Payload) take(op string, n int) []byte {
	if n > p.Remaining() {
		Violation(op, "need %d bytes at offset %d, have %d", n, p.pos, p.Remaining())
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

// ReadInt64 consumes 8 bytes.
func (p *Payload) ReadInt64() int64 {
	return int64(binary.LittleEndian.Uint64(p.take("ReadInt64", 8)))
}

// ReadFloat32 consumes 4 bytes.
func (p *Payload) ReadFloat32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p.take("ReadFloat32", 4)))
}

// ReadBytes reads a length-prefixed blob. The result is a copy.
func (p *Payload) ReadBytes() []byte {
	n := p.ReadInt64()
	if n == 0 {
		return []byte{}
	}
	if n < 0 {
		Violation("ReadBytes", "negative length %d at offset %d", n, p.pos-8)
	}
	if n > int64(p.Remaining()) {
		Violation("ReadBytes", "need %d bytes at offset %d, have %d", n, p.pos, p.Remaining())
	}
	out := make([]byte, n)
	copy(out, p.take("ReadBytes", int(n)))
	return out
}

// ReadString consumes a length-prefixed UTF-8 string.
func (p *Payload) ReadString() string {
	b := p.ReadBytes()
	if !utf8.Valid(b) {
		Violation("ReadString", "invalid UTF-8 in %d byte string", len(b))
	}
	return string(b)
}
