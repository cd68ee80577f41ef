// Package formula synthesises auto channels from per-attribute expressions.
//
// A formula document maps attribute names to expression source:
//
//	{"red": "sin(time) * 127 + 128", "green": "60*2"}
//
// Each expression is compiled once and evaluated per channel against a
// Context that carries the playback time. All channels sharing a typecode
// share one formula.
package formula

import (
	"errors"
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	ErrNotNumber = errors.New("result is not a number")
	ErrNotFinite = errors.New("result is not finite")
)

// Context is the evaluation state visible to formulas. It is updated once
// per frame and read-only while that frame is evaluated.
type Context struct {
	// Time is the playback position in seconds.
	Time float64
}

// ContextAt converts a microsecond playback timestamp into a Context.
func ContextAt(timeMicros int64) Context {
	return Context{Time: float64(timeMicros) / 1_000_000}
}

// env is what expressions see.
type env struct {
	Time float64 `expr:"time"`
	Pi   float64 `expr:"pi"`
	E    float64 `expr:"e"`
}

func (c Context) env() env {
	return env{Time: c.Time, Pi: math.Pi, E: math.E}
}

// Formula is a compiled expression.
type Formula struct {
	Source  string
	program *vm.Program
}

// Compile parses src into a Formula.
func Compile(src string) (*Formula, error) {
	opts := append([]expr.Option{expr.Env(env{})}, mathFunctions...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return &Formula{Source: src, program: program}, nil
}

// Eval runs the formula against ctx.
func (f *Formula) Eval(ctx Context) (float64, error) {
	out, err := expr.Run(f.program, ctx.env())
	if err != nil {
		return 0, err
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotFinite, v)
	}
	return v, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: %T", ErrNotNumber, v)
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(x), nil
	})
}

func binary(name string, fn func(float64, float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		y, err := toFloat(params[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(x, y), nil
	})
}

var mathFunctions = []expr.Option{
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("asin", math.Asin),
	unary("acos", math.Acos),
	unary("atan", math.Atan),
	unary("sqrt", math.Sqrt),
	unary("exp", math.Exp),
	unary("log", math.Log),
	binary("pow", math.Pow),
}
