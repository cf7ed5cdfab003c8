// Package sweep evaluates two metrics over every confusion matrix within
// bounded class totals.
//
// Evaluation is numeric (float64) and lazy: Sweep returns an iter.Seq that
// enumerates and evaluates one matrix per step, so consumers may stop early
// and may range over the same sequence again to restart it.
package sweep

import (
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/expr"
)

// Catalog resolves metric names to expanded formulas.
type Catalog interface {
	Expand(name string) (expr.Expr, error)
}

// Point is one evaluated matrix.
type Point struct {
	A      float64          `json:"a"`
	B      float64          `json:"b"`
	Matrix confusion.Matrix `json:"matrix"`
}

// Sweep evaluates metricA and metricB at every matrix of
// confusion.Enumerate(b), in that order.
//
// A matrix where either formula divides by zero is excluded. Names are
// resolved, formulas checked for unresolved references and bounds
// validated before the sequence is returned. Any other evaluation failure
// ends the sequence.
func Sweep(cat Catalog, metricA, metricB string, b confusion.Bounds) (iter.Seq[Point], error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	ea, err := expand(cat, metricA)
	if err != nil {
		return nil, err
	}
	eb, err := expand(cat, metricB)
	if err != nil {
		return nil, err
	}

	return func(yield func(Point) bool) {
		for m := range confusion.Enumerate(b) {
			p, ok, err := evaluate(ea, eb, m)
			if err != nil {
				return
			}
			if !ok {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}, nil
}

func expand(cat Catalog, name string) (expr.Expr, error) {
	e, err := cat.Expand(name)
	if err != nil {
		return nil, err
	}
	if refs := expr.Refs(e); len(refs) > 0 {
		return nil, fmt.Errorf("metric %q: %w: %s", name, expr.ErrUnresolvedRef, refs[0])
	}
	return e, nil
}

// evaluate returns the point for m. ok is false when m is excluded.
func evaluate(ea, eb expr.Expr, m confusion.Matrix) (p Point, ok bool, err error) {
	env := m.Env()
	a, err := expr.EvalFloat(ea, env)
	if err != nil {
		return Point{}, false, excludeOrFail(err, m)
	}
	b, err := expr.EvalFloat(eb, env)
	if err != nil {
		return Point{}, false, excludeOrFail(err, m)
	}
	return Point{A: a, B: b, Matrix: m}, true, nil
}

// excludeOrFail drops division by zero and wraps anything else.
func excludeOrFail(err error, m confusion.Matrix) error {
	if errors.Is(err, expr.ErrDivisionByZero) {
		return nil
	}
	return fmt.Errorf("evaluate at %s: %w", m, err)
}
