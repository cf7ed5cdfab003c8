package simplify

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/metricalg/internal/expr"
)

// DefaultMaxTerms bounds the size of intermediate rational functions.
const DefaultMaxTerms = 4096

// Rational simplifies expressions as quotients of polynomials with exact
// rational coefficients.
//
// The normal form is P / (Q1 * Q2 * ...) where each Qi is a monic
// polynomial that does not divide P. P is the zero polynomial exactly when
// the input is identically zero on every point where it is defined, and
// then the result is the literal 0. No factoring is attempted, so a
// non-zero result is correct but not necessarily the shortest form.
type Rational struct {
	maxTerms int
	logger   *slog.Logger
}

// RationalOption configures a Rational simplifier.
type RationalOption func(*Rational)

// WithMaxTerms overrides DefaultMaxTerms. Zero disables the limit.
func WithMaxTerms(n int) RationalOption {
	return func(r *Rational) {
		r.maxTerms = n
	}
}

// WithRationalLogger sets the logger. The default discards output.
func WithRationalLogger(l *slog.Logger) RationalOption {
	return func(r *Rational) {
		r.logger = l
	}
}

// NewRational creates the in-process simplifier.
func NewRational(opts ...RationalOption) *Rational {
	r := &Rational{
		maxTerms: DefaultMaxTerms,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Simplify implements Simplifier.
func (r *Rational) Simplify(ctx context.Context, e expr.Expr) (expr.Expr, error) {
	c := &converter{ctx: ctx, maxTerms: r.maxTerms}
	f, err := c.convert(e)
	if err != nil {
		return nil, newError("rational", e, err)
	}
	out := f.toExpr()
	r.logger.Debug("simplified",
		"input", expr.String(e),
		"output", expr.String(out),
		"numerator_terms", len(f.num),
		"denominator_factors", len(f.den))
	return out, nil
}
