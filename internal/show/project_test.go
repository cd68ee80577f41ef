package show

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scoobymooch/lightgen/universe"
)

const testShow = `
generator: gradient
offset_ms: 500
artnet: {universe: 3}
profiles:
  rgb: {channels: {red: 1, green: 2, blue: 3}}
  par: {channels: {dimmer: 1, red: 2, green: 3, blue: 4}}
patch:
  - {id: left, profile: rgb, base: 1}
  - {id: right, fixture: 7, profile: par, base: 6}
`

func mustParse(t *testing.T, doc string) *Project {
	t.Helper()
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParse(t *testing.T) {
	p := mustParse(t, testShow)
	if p.UnitKind() != "gradient-generator" {
		t.Errorf("UnitKind = %s", p.UnitKind())
	}
	if p.ArtNet.Universe != 3 || p.OffsetMS != 500 {
		t.Errorf("artnet %+v offset %d", p.ArtNet, p.OffsetMS)
	}
	if p.FixtureID(0) != 1 || p.FixtureID(1) != 7 {
		t.Errorf("fixture ids %d %d", p.FixtureID(0), p.FixtureID(1))
	}
	if start, length := p.Span(); start != 0 || length != 9 {
		t.Errorf("Span = %d, %d", start, length)
	}
	if got := strings.Join(p.Profiles["par"].ordered(), ","); got != "dimmer,red,green,blue" {
		t.Errorf("ordered = %s", got)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"generator", "generator: strobe\n"},
		{"profile", "patch: [{id: a, profile: nope, base: 1}]\n"},
		{"no id", "profiles: {p: {channels: {red: 1}}}\npatch: [{profile: p, base: 1}]\n"},
		{"base low", "profiles: {p: {channels: {red: 1}}}\npatch: [{id: a, profile: p, base: 0}]\n"},
		{"base high", "profiles: {p: {channels: {red: 1, green: 2}}}\npatch: [{id: a, profile: p, base: 65536}]\n"},
		{"overlap", "profiles: {p: {channels: {red: 1, green: 2}}}\npatch: [{id: a, profile: p, base: 1}, {id: b, profile: p, base: 2}]\n"},
		{"duplicate name", "profiles: {p: {channels: {red: 1}}}\npatch: [{id: a, profile: p, base: 1}, {id: a, profile: p, base: 2}]\n"},
		{"duplicate fixture", "profiles: {p: {channels: {red: 1}}}\npatch: [{id: a, fixture: 2, profile: p, base: 1}, {id: b, profile: p, base: 2}]\n"},
		{"shared channel", "profiles: {p: {channels: {red: 1, green: 1}}}\n"},
		{"channel zero", "profiles: {p: {channels: {red: 0}}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestMetadataRecords(t *testing.T) {
	p := mustParse(t, testShow)
	start, recs := p.MetadataRecords()
	if start != 0 || len(recs) != 9 {
		t.Fatalf("start %d len %d", start, len(recs))
	}
	want := []struct {
		fixture universe.FixtureID
		tc      universe.Typecode
	}{
		{1, universe.Red}, {1, universe.Green}, {1, universe.Blue},
		{universe.NoFixture, universe.Unpatched}, {universe.NoFixture, universe.Unpatched},
		{7, universe.Passthrough}, {7, universe.Red}, {7, universe.Green}, {7, universe.Blue},
	}
	for i, w := range want {
		if recs[i].Fixture != w.fixture || recs[i].Typecode != w.tc {
			t.Errorf("channel %d: %+v, want %v %v", i, recs[i], w.fixture, w.tc)
		}
	}
	if !strings.Contains(string(recs[5].Aux), `"attribute":"dimmer"`) {
		t.Errorf("aux %s", recs[5].Aux)
	}

	s := universe.NewStore()
	if n := s.ApplyMetadataBatch(p.MetadataBatch()); n != 9 {
		t.Errorf("applied %d records", n)
	}
	if s.Metadata(6) != (universe.Metadata{Typecode: universe.Red, Fixture: 7}) {
		t.Errorf("channel 6: %+v", s.Metadata(6))
	}
}

func TestFormulaDocument(t *testing.T) {
	p := mustParse(t, "generator: expression\nformulas: {red: \"sin(time)\", blue: 3}\n")
	if p.UnitKind() != "function-eval" {
		t.Errorf("UnitKind = %s", p.UnitKind())
	}
	doc, err := p.FormulaDocument()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc), "sin(time)") || !strings.Contains(string(doc), "blue: 3") {
		t.Errorf("document %q", doc)
	}

	doc, err = mustParse(t, testShow).FormulaDocument()
	if err != nil || doc != nil {
		t.Errorf("got %q, %v", doc, err)
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	showPath := filepath.Join(dir, "show.yaml")
	doc := testShow + "audio: track.mp3\n"
	if err := os.WriteFile(showPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(showPath)
	if err != nil {
		t.Fatal(err)
	}
	if p.AudioPath() != filepath.Join(dir, "track.mp3") {
		t.Errorf("AudioPath = %s", p.AudioPath())
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing show loaded")
	}
}
