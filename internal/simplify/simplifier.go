// Package simplify brings symbolic expressions to a normal form.
//
// The checker only needs one capability: given an expression over the base
// symbols, return an equivalent expression that is the literal constant 0
// whenever the input is identically zero. Rational implements that in
// process; Command delegates to an external computer-algebra program.
package simplify

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/metricalg/internal/expr"
)

// ErrSimplification is matched by every *SimplificationError.
var ErrSimplification = errors.New("simplification failed")

// Simplifier rewrites an expression into a simpler equivalent one.
type Simplifier interface {
	Simplify(ctx context.Context, e expr.Expr) (expr.Expr, error)
}

// SimplificationError reports a backend failure.
type SimplificationError struct {
	Backend string
	Input   string // canonical infix form of the input
	Err     error
}

func (e *SimplificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: simplifying %s failed", e.Backend, e.Input)
	}
	return fmt.Sprintf("%s: simplifying %s: %v", e.Backend, e.Input, e.Err)
}

// Is makes errors.Is(err, ErrSimplification) true.
func (e *SimplificationError) Is(target error) bool {
	return target == ErrSimplification
}

func (e *SimplificationError) Unwrap() error {
	return e.Err
}

func newError(backend string, in expr.Expr, err error) *SimplificationError {
	input := "<nil>"
	if in != nil {
		input = expr.String(in)
	}
	return &SimplificationError{Backend: backend, Input: input, Err: err}
}

// Func adapts an ordinary function to the Simplifier interface.
type Func func(ctx context.Context, e expr.Expr) (expr.Expr, error)

// Simplify calls f.
func (f Func) Simplify(ctx context.Context, e expr.Expr) (expr.Expr, error) {
	return f(ctx, e)
}
