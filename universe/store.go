// Package universe holds the per-unit channel tables: fixture metadata and
// current input values for 65,536 addressable channels.
package universe

import (
	"github.com/scoobymooch/lightgen/payload"
)

// Size is the number of addressable channels.
const Size = 65536

// AutoSentinel is the wire value meaning "no console value this frame,
// synthesise one".
const AutoSentinel float32 = -1000001.0

// FixtureID identifies the fixture a channel belongs to.
type FixtureID int64

// NoFixture is the fixture id of an unpatched channel.
const NoFixture FixtureID = -1

// Metadata describes one channel.
type Metadata struct {
	Typecode Typecode
	Fixture  FixtureID
}

// UnpatchedMetadata is the metadata of a channel that belongs to no fixture.
var UnpatchedMetadata = Metadata{Typecode: Unpatched, Fixture: NoFixture}

// Patched reports whether the channel belongs to a fixture.
func (m Metadata) Patched() bool { return m.Fixture != NoFixture }

// Value is a channel input. The zero Value is an explicit 0.
type Value struct {
	Level float32
	Auto  bool
}

// AutoValue marks a channel for synthesis.
var AutoValue = Value{Auto: true}

// Explicit returns a console-supplied value.
func Explicit(level float32) Value { return Value{Level: level} }

// ValueFromWire decodes a wire float, recognising AutoSentinel.
func ValueFromWire(f float32) Value {
	if f == AutoSentinel {
		return AutoValue
	}
	return Value{Level: f}
}

// Wire encodes v for the host, restoring AutoSentinel.
func (v Value) Wire() float32 {
	if v.Auto {
		return AutoSentinel
	}
	return v.Level
}

// Store is the fixed-capacity metadata and value table of one unit
// instance. It is not safe for concurrent use; the host serialises calls.
type Store struct {
	meta   [Size]Metadata
	values [Size]Value
}

// NewStore returns a store with every channel unpatched and at explicit 0.
func NewStore() *Store {
	s := new(Store)
	for i := range s.meta {
		s.meta[i] = UnpatchedMetadata
	}
	return s
}

func checkChannel(op string, ch int) {
	if ch < 0 || ch >= Size {
		payload.Violation(op, "channel %d outside 0..%d", ch, Size-1)
	}
}

// CheckRange panics unless [start, start+length) lies inside the universe.
func CheckRange(start, length int) {
	if start < 0 || length < 0 || start > Size || length > Size-start {
		payload.Violation("CheckRange", "range start=%d length=%d outside 0..%d", start, length, Size)
	}
}

// Metadata returns the metadata of channel ch.
func (s *Store) Metadata(ch int) Metadata {
	checkChannel("Metadata", ch)
	return s.meta[ch]
}

// SetMetadata replaces the metadata of channel ch.
func (s *Store) SetMetadata(ch int, m Metadata) {
	checkChannel("SetMetadata", ch)
	s.meta[ch] = m
}

// Value returns the input value of channel ch.
func (s *Store) Value(ch int) Value {
	checkChannel("Value", ch)
	return s.values[ch]
}

// SetValue replaces the input value of channel ch.
func (s *Store) SetValue(ch int, v Value) {
	checkChannel("SetValue", ch)
	s.values[ch] = v
}
