package formula

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/scoobymooch/lightgen/universe"
)

var (
	ErrNotMapping       = errors.New("formula document is not a mapping")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrNotExpression    = errors.New("value is not an expression")
)

// Table maps typecodes to formulas.
type Table struct {
	formulas map[universe.Typecode]*Formula
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{formulas: make(map[universe.Typecode]*Formula)}
}

// Lookup returns the formula bound to tc.
func (t *Table) Lookup(tc universe.Typecode) (*Formula, bool) {
	f, ok := t.formulas[tc]
	return f, ok
}

// Len is the number of bound formulas.
func (t *Table) Len() int { return len(t.formulas) }

// Load parses a formula document. The document is a JSON object or YAML
// mapping whose keys are attribute names and whose scalar values are
// expression source. Entries that cannot be used are skipped and reported
// together in the returned error; the table holds every entry that
// compiled. Later duplicate keys replace earlier ones.
func Load(doc []byte) (*Table, error) {
	t := NewTable()

	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return t, fmt.Errorf("formula document: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	switch node.Kind {
	case 0:
		return t, nil
	case yaml.MappingNode:
	default:
		return t, fmt.Errorf("line %d: %w", node.Line, ErrNotMapping)
	}

	var errs []error
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		tc := universe.ParseTypecode(key.Value)
		if tc == universe.Unpatched {
			errs = append(errs, fmt.Errorf("line %d: %w %q", key.Line, ErrUnknownAttribute, key.Value))
			continue
		}
		if val.Kind != yaml.ScalarNode {
			errs = append(errs, fmt.Errorf("%s (line %d): %w", key.Value, val.Line, ErrNotExpression))
			continue
		}
		f, err := Compile(val.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s (line %d): %w", key.Value, val.Line, err))
			continue
		}
		t.formulas[tc] = f
	}
	return t, errors.Join(errs...)
}
