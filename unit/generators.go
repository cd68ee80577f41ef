package unit

import (
	"errors"
	"log/slog"

	"github.com/scoobymooch/lightgen/formula"
	"github.com/scoobymooch/lightgen/gradient"
	"github.com/scoobymooch/lightgen/universe"
)

// FormulaResource is the bundled formula document an expression unit loads
// when it starts.
const FormulaResource = "formulas.json"

// base holds what every unit kind shares.
type base struct {
	host  Host
	store *universe.Store
}

// SetChannelMetadata applies a metadata batch.
func (b *base) SetChannelMetadata(batch []byte) { b.store.ApplyMetadataBatch(batch) }

// SetInputValues applies a value batch.
func (b *base) SetInputValues(batch []byte) { b.store.ApplyValueBatch(batch) }

// ResetState is a no-op; no derived state is kept.
func (b *base) ResetState() {}

// Store exposes the unit's channel tables to in-process hosts and tests.
func (b *base) Store() *universe.Store { return b.store }

// Gradient fades auto channels between anchor fixtures.
type Gradient struct {
	base
}

// NewGradient returns a gradient unit with an empty store.
func NewGradient(host Host) *Gradient {
	return &Gradient{base{host: host, store: universe.NewStore()}}
}

// SetConfiguration is accepted and ignored; gradients need none.
func (g *Gradient) SetConfiguration([]byte) {}

// Process answers a synthesis request with gradient values.
func (g *Gradient) Process(request []byte) []byte {
	r := DecodeRequest(request)
	return encodeResponse(gradient.Synthesize(g.store, r.Start, r.Length))
}

// Expression evaluates per-attribute formulas for auto channels.
type Expression struct {
	base
	engine *formula.Engine
}

// NewExpression returns an expression unit, loading FormulaResource when the host bundles it.
func NewExpression(host Host) *Expression {
	e := &Expression{
		base:   base{host: host, store: universe.NewStore()},
		engine: formula.NewEngine(slog.New(&hostHandler{host: host})),
	}
	doc, err := host.Resource(FormulaResource)
	switch {
	case err == nil:
		e.engine.Configure(doc)
	case errors.Is(err, ErrNoResource):
		host.Log(Debug, "no bundled "+FormulaResource)
	default:
		host.Log(Warn, "reading bundled "+FormulaResource+": "+err.Error())
	}
	return e
}

// SetConfiguration replaces the formula table. Broken entries are logged
// through the host and skipped.
func (e *Expression) SetConfiguration(doc []byte) {
	e.engine.Configure(doc)
}

// Process answers a synthesis request with formula values.
func (e *Expression) Process(request []byte) []byte {
	r := DecodeRequest(request)
	return encodeResponse(e.engine.Synthesize(e.store, r.Start, r.Length, r.TimeMicros))
}

// Formulas returns the loaded formula table.
func (e *Expression) Formulas() *formula.Table { return e.engine.Table() }
