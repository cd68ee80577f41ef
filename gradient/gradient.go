// Package gradient fills auto channels by fading attribute values between
// the nearest fixtures, by address, that carry explicit console values.
//
// A walk over the requested range keeps two anchor fixtures: fadeFrom, the
// last anchor at or behind the walk, and next, the first anchor ahead of it
// with a different fixture id. Every fixture in between takes
//
//	fadeFrom + (next - fadeFrom) * (id - fadeFrom.id) / (next.id - fadeFrom.id)
//
// per attribute, so fades follow fixture numbering rather than channel
// spacing. With no usable next anchor the fade holds flat at fadeFrom.
package gradient

import (
	"github.com/scoobymooch/lightgen/universe"
)

// Vector is the aggregated attribute state of one fixture, one slot per
// typecode. Slot 0 is unused.
type Vector struct {
	Fixture universe.FixtureID
	Values  [universe.MaxAttribute + 1]float32
}

var empty = Vector{Fixture: universe.NoFixture}

// Lerp moves each attribute of v toward other by amount.
func (v Vector) Lerp(other Vector, amount float32) Vector {
	out := Vector{Fixture: v.Fixture}
	for i := range v.Values {
		out.Values[i] = v.Values[i] + (other.Values[i]-v.Values[i])*amount
	}
	return out
}

// fraction is the position of fixture id between from and to.
func fraction(id, from, to universe.FixtureID) float32 {
	span := to - from
	if span <= 0 || id == universe.NoFixture {
		return 0
	}
	return float32(id-from) / float32(span)
}

// runStart rewinds ch to the first channel of its fixture run.
func runStart(s *universe.Store, ch int) int {
	id := s.Metadata(ch).Fixture
	if id == universe.NoFixture {
		return ch
	}
	for ch > 0 && s.Metadata(ch-1).Fixture == id {
		ch--
	}
	return ch
}

// aggregate collects the explicit attribute values of the fixture run that
// begins at ch. Auto channels leave their slot at 0.
func aggregate(s *universe.Store, ch int) Vector {
	if ch >= universe.Size {
		return empty
	}
	v := Vector{Fixture: s.Metadata(ch).Fixture}
	if v.Fixture == universe.NoFixture {
		return v
	}
	for ; ch < universe.Size; ch++ {
		m := s.Metadata(ch)
		if m.Fixture != v.Fixture {
			break
		}
		val := s.Value(ch)
		if m.Typecode.IsAttribute() && !val.Auto {
			v.Values[m.Typecode] = val.Level
		}
	}
	return v
}

// isAnchor reports whether the fixture run starting at ch has any explicit
// value.
func isAnchor(s *universe.Store, ch int) bool {
	id := s.Metadata(ch).Fixture
	if id == universe.NoFixture {
		return false
	}
	for ; ch < universe.Size && s.Metadata(ch).Fixture == id; ch++ {
		if !s.Value(ch).Auto {
			return true
		}
	}
	return false
}

// anchorAtOrBefore finds the start of the nearest anchor run containing or
// preceding ch.
func anchorAtOrBefore(s *universe.Store, ch int) (int, bool) {
	start := runStart(s, ch)
	if isAnchor(s, start) {
		return start, true
	}
	for p := start - 1; p >= 0; p-- {
		if s.Metadata(p).Patched() && !s.Value(p).Auto {
			return runStart(s, p), true
		}
	}
	return 0, false
}

// nextAnchorAfter scans forward from ch for the first explicit channel on a
// patched fixture other than the one at ch, and returns the start of that
// fixture's run. It returns universe.Size when there is none.
func nextAnchorAfter(s *universe.Store, ch int) int {
	id := s.Metadata(ch).Fixture
	for p := ch; p < universe.Size; p++ {
		m := s.Metadata(p)
		if !m.Patched() || m.Fixture == id {
			continue
		}
		if !s.Value(p).Auto {
			return runStart(s, p)
		}
	}
	return universe.Size
}

// Synthesize returns one output per channel in [start, start+length).
// Attribute channels get the fade between anchors; every other channel
// passes its stored value through. The range must lie inside the universe.
func Synthesize(s *universe.Store, start, length int) []float32 {
	universe.CheckRange(start, length)
	out := make([]float32, length)
	if length == 0 {
		return out
	}

	nextAddr := nextAnchorAfter(s, start)
	next := aggregate(s, nextAddr)
	from := next
	if addr, ok := anchorAtOrBefore(s, start); ok {
		from = aggregate(s, addr)
	}

	var current Vector
	fixture := universe.NoFixture
	stale := true
	for i := range out {
		ch := start + i
		m := s.Metadata(ch)

		if ch >= nextAddr {
			from = next
			nextAddr = nextAnchorAfter(s, ch)
			next = aggregate(s, nextAddr)
			stale = true
		}
		if stale || m.Fixture != fixture {
			fixture = m.Fixture
			current = from.Lerp(next, fraction(fixture, from.Fixture, next.Fixture))
			stale = false
		}

		if m.Typecode.IsAttribute() {
			out[i] = current.Values[m.Typecode]
		} else {
			out[i] = s.Value(ch).Wire()
		}
	}
	return out
}
