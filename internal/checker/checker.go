// Package checker decides whether two registered metrics are the same
// function of the confusion-matrix counts.
//
// The symbolic path forms expand(a) - expand(b), hands it to a Simplifier
// and tests the result for the literal zero. A non-zero residual can be
// evaluated at concrete matrices to produce a witness of the difference.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/expr"
	"github.com/roach88/metricalg/internal/simplify"
)

// ErrNoWitness is returned by FindWitness when the residual is zero (or
// undefined) on every matrix within the bounds.
var ErrNoWitness = errors.New("no witness within bounds")

// Catalog resolves metric names to expanded formulas.
// *registry.Registry implements it.
type Catalog interface {
	Expand(name string) (expr.Expr, error)
}

// Verdict is the outcome of an equivalence check.
type Verdict string

const (
	Equivalent    Verdict = "equivalent"
	NotEquivalent Verdict = "not_equivalent"
)

// Witness is a matrix at which a residual is defined and non-zero.
type Witness struct {
	Matrix confusion.Matrix
	Value  *big.Rat
}

// Float returns the witness value as a float64.
func (w Witness) Float() float64 {
	f, _ := w.Value.Float64()
	return f
}

// Result is the outcome of AreEquivalent.
type Result struct {
	MetricA  string
	MetricB  string
	Verdict  Verdict
	Residual expr.Expr

	// Witness is set for NotEquivalent results when witness search is
	// enabled and a witness exists within the search bounds.
	Witness *Witness
}

// Equivalent reports whether the verdict is Equivalent.
func (r *Result) Equivalent() bool {
	return r.Verdict == Equivalent
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = l
	}
}

// WithWitnessSearch makes AreEquivalent attach the first witness found
// within b to every NotEquivalent result.
func WithWitnessSearch(b confusion.Bounds) Option {
	return func(c *Checker) {
		c.witnessBounds = &b
	}
}

// Checker runs equivalence checks against a catalog.
type Checker struct {
	catalog       Catalog
	simplifier    simplify.Simplifier
	logger        *slog.Logger
	witnessBounds *confusion.Bounds
}

// New creates a checker.
func New(catalog Catalog, simplifier simplify.Simplifier, opts ...Option) *Checker {
	c := &Checker{
		catalog:    catalog,
		simplifier: simplifier,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AreEquivalent simplifies expand(a) - expand(b).
//
// Returns the registry's ErrUnknownMetric if either name is missing and the
// simplifier's error (matching simplify.ErrSimplification) if it fails. A
// failed simplification is never reported as NotEquivalent.
func (c *Checker) AreEquivalent(ctx context.Context, a, b string) (*Result, error) {
	ea, err := c.catalog.Expand(a)
	if err != nil {
		return nil, err
	}
	eb, err := c.catalog.Expand(b)
	if err != nil {
		return nil, err
	}

	residual, err := c.simplifier.Simplify(ctx, expr.Sub{X: ea, Y: eb})
	if err != nil {
		return nil, fmt.Errorf("check %s against %s: %w", a, b, err)
	}

	result := &Result{
		MetricA:  a,
		MetricB:  b,
		Verdict:  NotEquivalent,
		Residual: residual,
	}
	if expr.IsZero(residual) {
		result.Verdict = Equivalent
	}

	c.logger.Debug("equivalence checked",
		"metric_a", a,
		"metric_b", b,
		"verdict", result.Verdict,
		"residual", expr.String(residual))

	if result.Verdict == NotEquivalent && c.witnessBounds != nil {
		w, err := FindWitness(residual, *c.witnessBounds)
		switch {
		case err == nil:
			result.Witness = w
		case errors.Is(err, ErrNoWitness):
			c.logger.Debug("no witness within bounds",
				"metric_a", a,
				"metric_b", b,
				"max_total_true", c.witnessBounds.MaxTotalTrue,
				"max_total_false", c.witnessBounds.MaxTotalFalse)
		default:
			return nil, fmt.Errorf("check %s against %s: %w", a, b, err)
		}
	}

	return result, nil
}

// WitnessDifference evaluates residual at m.
//
// The matrix is validated first. Returns expr.ErrDivisionByZero (wrapped)
// if any denominator of the residual is zero at m.
func WitnessDifference(residual expr.Expr, m confusion.Matrix) (float64, error) {
	v, err := WitnessExact(residual, m)
	if err != nil {
		return 0, err
	}
	f, _ := v.Float64()
	return f, nil
}

// WitnessExact is WitnessDifference without rounding.
func WitnessExact(residual expr.Expr, m confusion.Matrix) (*big.Rat, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	v, err := expr.Eval(residual, m.Env())
	if err != nil {
		return nil, fmt.Errorf("evaluate residual at %s: %w", m, err)
	}
	return v, nil
}

// FindWitness returns the first matrix, in enumeration order, where residual
// is defined and non-zero.
func FindWitness(residual expr.Expr, b confusion.Bounds) (*Witness, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	for m := range confusion.Enumerate(b) {
		v, err := expr.Eval(residual, m.Env())
		if errors.Is(err, expr.ErrDivisionByZero) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("evaluate residual at %s: %w", m, err)
		}
		if v.Sign() != 0 {
			return &Witness{Matrix: m, Value: v}, nil
		}
	}
	return nil, ErrNoWitness
}
