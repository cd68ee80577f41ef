package formula

import (
	"log/slog"

	"github.com/scoobymooch/lightgen/universe"
)

// Engine holds the formula table and evaluation context of one unit.
type Engine struct {
	table  *Table
	ctx    Context
	logger *slog.Logger
}

// NewEngine returns an engine with no formulas. A nil logger uses
// slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: NewTable(), logger: logger}
}

// Configure replaces the formula table with the one described by doc.
// Unusable entries are logged and left unbound; the error reports them for
// callers that want more than the log.
func (e *Engine) Configure(doc []byte) error {
	table, err := Load(doc)
	e.table = table
	if err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, skipped := range joined.Unwrap() {
				e.logger.Warn("formula skipped", "err", skipped)
			}
		} else {
			e.logger.Warn("formula document rejected", "err", err)
		}
	}
	e.logger.Debug("formulas loaded", "count", table.Len())
	return err
}

// Table returns the formulas currently bound.
func (e *Engine) Table() *Table { return e.table }

// Context returns the context of the last Synthesize call.
func (e *Engine) Context() Context { return e.ctx }

// Synthesize evaluates the range [start, start+length) at timeMicros.
// Auto channels get their typecode's formula, or 0 when there is none or
// evaluation fails. Explicit channels echo their stored value.
//
// A formula reads only the context, so each typecode is evaluated at most
// once per call and a failure is logged once per typecode.
func (e *Engine) Synthesize(s *universe.Store, start, length int, timeMicros int64) []float32 {
	universe.CheckRange(start, length)
	e.ctx = ContextAt(timeMicros)

	var (
		done   [universe.MaxAttribute + 1]bool
		levels [universe.MaxAttribute + 1]float32
	)
	out := make([]float32, length)
	for i := range out {
		ch := start + i
		v := s.Value(ch)
		if !v.Auto {
			out[i] = v.Level
			continue
		}
		tc := s.Metadata(ch).Typecode
		if !tc.IsAttribute() {
			continue
		}
		if !done[tc] {
			done[tc] = true
			levels[tc] = e.eval(tc, ch)
		}
		out[i] = levels[tc]
	}
	return out
}

// eval runs the formula bound to tc, or returns 0. ch is the first channel
// that asked, for the log.
func (e *Engine) eval(tc universe.Typecode, ch int) float32 {
	f, ok := e.table.Lookup(tc)
	if !ok {
		return 0
	}
	val, err := f.Eval(e.ctx)
	if err != nil {
		e.logger.Debug("formula failed", "attribute", tc, "channel", ch, "err", err)
		return 0
	}
	return float32(val)
}
