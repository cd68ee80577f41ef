package universe

import (
	"testing"

	"github.com/scoobymooch/lightgen/payload"
)

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()
	for _, ch := range []int{0, 1, 512, Size - 1} {
		if m := s.Metadata(ch); m != UnpatchedMetadata {
			t.Errorf("channel %d metadata %+v", ch, m)
		}
		if v := s.Value(ch); v != Explicit(0) {
			t.Errorf("channel %d value %+v", ch, v)
		}
	}
}

func TestWireSentinel(t *testing.T) {
	if !ValueFromWire(AutoSentinel).Auto {
		t.Error("sentinel not decoded as auto")
	}
	if v := ValueFromWire(-1000000); v.Auto || v.Level != -1000000 {
		t.Errorf("neighbour of sentinel decoded as %+v", v)
	}
	if AutoValue.Wire() != AutoSentinel {
		t.Error("auto not encoded as sentinel")
	}
	if Explicit(12.5).Wire() != 12.5 {
		t.Error("explicit value changed on the wire")
	}
}

func TestApplyMetadataBatch(t *testing.T) {
	s := NewStore()
	batch := EncodeMetadataBatch(10, []MetadataRecord{
		{Fixture: 3, Typecode: Red},
		{Fixture: 3, Typecode: Green, Aux: []byte(`{"dimmer":true}`)},
		{Fixture: NoFixture, Typecode: Unpatched},
	})
	if n := s.ApplyMetadataBatch(batch); n != 3 {
		t.Fatalf("applied %d records", n)
	}
	want := []Metadata{{Red, 3}, {Green, 3}, UnpatchedMetadata}
	for i, w := range want {
		if got := s.Metadata(10 + i); got != w {
			t.Errorf("channel %d: got %+v, want %+v", 10+i, got, w)
		}
	}
	if s.Metadata(9) != UnpatchedMetadata {
		t.Error("channel before batch touched")
	}
}

func TestApplyMetadataBatchOverwrites(t *testing.T) {
	s := NewStore()
	s.ApplyMetadataBatch(EncodeMetadataBatch(0, []MetadataRecord{{Fixture: 1, Typecode: Red}}))
	s.ApplyMetadataBatch(EncodeMetadataBatch(0, []MetadataRecord{{Fixture: NoFixture, Typecode: Unpatched}}))
	if s.Metadata(0).Patched() {
		t.Error("unpatch by sentinel record did not overwrite")
	}
}

func TestApplyMetadataBatchStopsOnPartialRecord(t *testing.T) {
	s := NewStore()
	batch := EncodeMetadataBatch(0, []MetadataRecord{{Fixture: 1, Typecode: Blue}})
	batch = append(batch, make([]byte, 23)...)
	if n := s.ApplyMetadataBatch(batch); n != 1 {
		t.Fatalf("applied %d records", n)
	}
	if s.Metadata(1) != UnpatchedMetadata {
		t.Error("partial record was applied")
	}
}

func TestApplyValueBatch(t *testing.T) {
	s := NewStore()
	batch := EncodeValueBatch(100, []Value{Explicit(255), AutoValue, Explicit(0)})
	batch = append(batch, 1, 2, 3)
	if n := s.ApplyValueBatch(batch); n != 3 {
		t.Fatalf("applied %d values", n)
	}
	if v := s.Value(100); v != Explicit(255) {
		t.Errorf("100: %+v", v)
	}
	if !s.Value(101).Auto {
		t.Error("101 not auto")
	}
	if v := s.Value(102); v != Explicit(0) {
		t.Errorf("102: %+v", v)
	}
}

func TestBatchPastEndPanics(t *testing.T) {
	defer func() {
		if _, ok := recover().(*payload.ProtocolError); !ok {
			t.Fatal("expected *payload.ProtocolError")
		}
	}()
	s := NewStore()
	s.ApplyValueBatch(EncodeValueBatch(Size-1, []Value{Explicit(1), Explicit(2)}))
}

func TestCheckRange(t *testing.T) {
	ok := [][2]int{{0, Size}, {0, 0}, {Size, 0}, {Size - 1, 1}}
	for _, r := range ok {
		CheckRange(r[0], r[1])
	}
	bad := [][2]int{{-1, 1}, {0, Size + 1}, {Size - 1, 2}, {5, -1}}
	for _, r := range bad {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("range %v accepted", r)
				}
			}()
			CheckRange(r[0], r[1])
		}()
	}
}

func TestTypecodeNames(t *testing.T) {
	tests := []struct {
		name string
		tc   Typecode
	}{
		{"red", Red}, {"green", Green}, {"blue", Blue}, {"white", White},
		{"neutral_white", NeutralWhite}, {"warm_white", WarmWhite},
		{"cool_white", CoolWhite}, {"amber", Amber}, {"lime", Lime},
		{"uv", UV}, {"x", X}, {"y", Y},
		{"dimmer", Unpatched}, {"", Unpatched}, {"Red", Unpatched},
	}
	for _, tt := range tests {
		if got := ParseTypecode(tt.name); got != tt.tc {
			t.Errorf("ParseTypecode(%q) = %d, want %d", tt.name, got, tt.tc)
		}
		if tt.tc.IsAttribute() && tt.tc.String() != tt.name {
			t.Errorf("%d.String() = %q", tt.tc, tt.tc.String())
		}
	}
	for tc, want := range map[Typecode]bool{-1: false, 0: false, 1: true, 15: true, 16: false} {
		if tc.IsAttribute() != want {
			t.Errorf("%d.IsAttribute() = %v", tc, !want)
		}
	}
}
