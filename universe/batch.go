package universe

import (
	"github.com/scoobymooch/lightgen/payload"
)

const (
	// metadataRecordMin is fixtureId + typecode + aux length prefix.
	metadataRecordMin = 24
	valueRecordSize   = 4
)

// MetadataRecord is one entry of a metadata batch. Aux is carried for
// extensions and not interpreted here.
type MetadataRecord struct {
	Fixture  FixtureID
	Typecode Typecode
	Aux      []byte
}

// EncodeMetadataBatch builds a metadata batch starting at channel start.
func EncodeMetadataBatch(start int, records []MetadataRecord) []byte {
	p := payload.New()
	p.WriteInt64(int64(start))
	for _, r := range records {
		p.WriteInt64(int64(r.Fixture))
		p.WriteInt64(int64(r.Typecode))
		p.WriteBytes(r.Aux)
	}
	return p.Bytes()
}

// EncodeValueBatch builds a value batch starting at channel start.
func EncodeValueBatch(start int, values []Value) []byte {
	p := payload.Preallocated(8 + len(values)*valueRecordSize)
	p.WriteInt64(int64(start))
	for _, v := range values {
		p.WriteFloat32(v.Wire())
	}
	return p.Bytes()
}

// ApplyMetadataBatch writes consecutive metadata records starting at the
// batch's start channel. A trailing partial record is ignored. It returns
// the number of records applied.
func (s *Store) ApplyMetadataBatch(batch []byte) int {
	p := payload.FromBytes(batch)
	ch := int(p.ReadInt64())
	n := 0
	for p.Remaining() >= metadataRecordMin {
		fixture := FixtureID(p.ReadInt64())
		tc := Typecode(p.ReadInt64())
		_ = p.ReadBytes()
		checkChannel("ApplyMetadataBatch", ch)
		s.meta[ch] = Metadata{Typecode: tc, Fixture: fixture}
		ch++
		n++
	}
	return n
}

// ApplyValueBatch writes consecutive values starting at the batch's start
// channel. A trailing partial record is ignored. It returns the number of
// values applied.
func (s *Store) ApplyValueBatch(batch []byte) int {
	p := payload.FromBytes(batch)
	ch := int(p.ReadInt64())
	n := 0
	for p.Remaining() >= valueRecordSize {
		v := ValueFromWire(p.ReadFloat32())
		checkChannel("ApplyValueBatch", ch)
		s.values[ch] = v
		ch++
		n++
	}
	return n
}
