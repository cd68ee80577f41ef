// Package show loads a YAML show file and turns it into what a lighting
// unit consumes: a metadata batch describing the patch, and per-frame value
// batches played back from per-fixture timelines.
//
// Overview
//   - The show file defines fixture profiles, a patch, the generator to run,
//     and optionally an audio track and Art-Net settings.
//   - Each patched fixture may point at a timeline text file. Each line
//     encodes: START END COMMAND [values], where times are seconds (12.5) or
//     MM:SS.mmm / HH:MM:SS.mmm.
//   - Channels no timeline drives are left auto, so the generator fills them.
package show

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/scoobymooch/lightgen/universe"
)

// Project is the root of a show file. Generator selects the unit
// ("gradient" or "expression"); Formulas is the formula document handed to
// an expression unit.
type Project struct {
	Generator string             `yaml:"generator"`
	Formulas  yaml.Node          `yaml:"formulas,omitempty"`
	Audio     string             `yaml:"audio,omitempty"`
	OffsetMS  int                `yaml:"offset_ms"`
	ArtNet    ArtNetConfig       `yaml:"artnet"`
	Profiles  map[string]Profile `yaml:"profiles"`
	Patch     []PatchedFixture   `yaml:"patch"`

	dir string
}

// ArtNetConfig selects where frames are broadcast. Universe is the Art-Net
// universe that carries channels 1..512.
type ArtNetConfig struct {
	BroadcastSubnet string `yaml:"broadcast_subnet,omitempty"`
	Universe        uint16 `yaml:"universe"`
}

// Profile maps attribute names to 1-based channel offsets within a fixture.
// Attribute names outside the typecode vocabulary pass through unsynthesised.
type Profile struct {
	Channels map[string]int `yaml:"channels"`
}

// PatchedFixture binds a fixture to a profile and a 1-based base address,
// and points to an optional timeline file.
type PatchedFixture struct {
	ID       string `yaml:"id"`
	Fixture  *int64 `yaml:"fixture,omitempty"`
	Profile  string `yaml:"profile"`
	Base     int    `yaml:"base"`
	Timeline string `yaml:"timeline,omitempty"`
}

// ErrInvalid wraps every show validation failure.
var ErrInvalid = errors.New("invalid show")

// Load reads and validates a show file. Relative timeline and audio paths
// resolve against the show file's directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// Parse decodes and validates a show document.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// UnitKind maps the generator name onto a unit kind.
func (p *Project) UnitKind() string {
	switch p.Generator {
	case "", "gradient":
		return "gradient-generator"
	case "expression":
		return "function-eval"
	}
	return p.Generator
}

// FormulaDocument re-encodes the formulas section for the unit. It is nil
// when the show has none.
func (p *Project) FormulaDocument() ([]byte, error) {
	if p.Formulas.Kind == 0 {
		return nil, nil
	}
	return yaml.Marshal(&p.Formulas)
}

// FixtureID is the numeric fixture id of the i-th patch entry. Entries
// without an explicit id are numbered by patch order from 1.
func (p *Project) FixtureID(i int) universe.FixtureID {
	if id := p.Patch[i].Fixture; id != nil {
		return universe.FixtureID(*id)
	}
	return universe.FixtureID(i + 1)
}

// footprint is the number of channels a profile spans.
func (pr Profile) footprint() int {
	n := 0
	for _, ch := range pr.Channels {
		if ch > n {
			n = ch
		}
	}
	return n
}

// ordered lists attribute names by channel number, not alphabetically.
func (pr Profile) ordered() []string {
	names := make([]string, 0, len(pr.Channels))
	for name := range pr.Channels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return pr.Channels[names[i]] < pr.Channels[names[j]]
	})
	return names
}

func (p *Project) validate() error {
	switch p.UnitKind() {
	case "gradient-generator", "function-eval":
	default:
		return fmt.Errorf("%w: unknown generator %q", ErrInvalid, p.Generator)
	}
	for name, pr := range p.Profiles {
		seen := map[int]string{}
		for attr, ch := range pr.Channels {
			if ch < 1 {
				return fmt.Errorf("%w: profile %s: channel %d for %s", ErrInvalid, name, ch, attr)
			}
			if other, dup := seen[ch]; dup {
				return fmt.Errorf("%w: profile %s: %s and %s share channel %d", ErrInvalid, name, attr, other, ch)
			}
			seen[ch] = attr
		}
	}

	owner := map[int]string{}
	ids := map[universe.FixtureID]string{}
	names := map[string]bool{}
	for i, fx := range p.Patch {
		if fx.ID == "" {
			return fmt.Errorf("%w: patch entry %d has no id", ErrInvalid, i+1)
		}
		if names[fx.ID] {
			return fmt.Errorf("%w: fixture %s patched twice", ErrInvalid, fx.ID)
		}
		names[fx.ID] = true
		pr, ok := p.Profiles[fx.Profile]
		if !ok {
			return fmt.Errorf("%w: fixture %s: unknown profile %q", ErrInvalid, fx.ID, fx.Profile)
		}
		if fx.Base < 1 || fx.Base-1+pr.footprint() > universe.Size {
			return fmt.Errorf("%w: fixture %s: base %d outside 1..%d", ErrInvalid, fx.ID, fx.Base, universe.Size)
		}
		id := p.FixtureID(i)
		if other, dup := ids[id]; dup {
			return fmt.Errorf("%w: fixtures %s and %s share fixture id %d", ErrInvalid, other, fx.ID, id)
		}
		ids[id] = fx.ID
		for ch := fx.Base - 1; ch < fx.Base-1+pr.footprint(); ch++ {
			if other, taken := owner[ch]; taken {
				return fmt.Errorf("%w: fixtures %s and %s overlap at address %d", ErrInvalid, other, fx.ID, ch+1)
			}
			owner[ch] = fx.ID
		}
	}
	return nil
}

// Span returns the channel range covering every patched fixture.
func (p *Project) Span() (start, length int) {
	if len(p.Patch) == 0 {
		return 0, 0
	}
	lo, hi := universe.Size, 0
	for _, fx := range p.Patch {
		first := fx.Base - 1
		last := first + p.Profiles[fx.Profile].footprint()
		lo = min(lo, first)
		hi = max(hi, last)
	}
	return lo, hi - lo
}

type channelAux struct {
	Fixture   string `json:"fixture"`
	Attribute string `json:"attribute,omitempty"`
}

// MetadataRecords describes every channel of the span, in address order.
// Channels inside the span that no fixture covers are unpatched.
func (p *Project) MetadataRecords() (start int, records []universe.MetadataRecord) {
	start, length := p.Span()
	records = make([]universe.MetadataRecord, length)
	for i := range records {
		records[i] = universe.MetadataRecord{Fixture: universe.NoFixture, Typecode: universe.Unpatched}
	}
	for i, fx := range p.Patch {
		pr := p.Profiles[fx.Profile]
		attrs := make([]string, pr.footprint())
		for attr, ch := range pr.Channels {
			attrs[ch-1] = attr
		}
		for off, attr := range attrs {
			tc := universe.ParseTypecode(attr)
			if tc == universe.Unpatched {
				tc = universe.Passthrough
			}
			aux, _ := json.Marshal(channelAux{Fixture: fx.ID, Attribute: attr})
			records[fx.Base-1+off-start] = universe.MetadataRecord{
				Fixture:  p.FixtureID(i),
				Typecode: tc,
				Aux:      aux,
			}
		}
	}
	return start, records
}

// MetadataBatch is the wire form of MetadataRecords.
func (p *Project) MetadataBatch() []byte {
	return universe.EncodeMetadataBatch(p.MetadataRecords())
}

// findFixture returns the patch index of the fixture named id.
func (p *Project) findFixture(id string) (int, bool) {
	for i, fx := range p.Patch {
		if fx.ID == id {
			return i, true
		}
	}
	return 0, false
}

// resolve makes a show-relative path absolute.
func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.dir == "" {
		return path
	}
	return filepath.Join(p.dir, path)
}

// AudioPath is the audio track, resolved against the show file.
func (p *Project) AudioPath() string { return p.resolve(p.Audio) }
