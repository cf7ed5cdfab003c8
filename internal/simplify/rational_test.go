package simplify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/expr"
)

func simplifyString(t *testing.T, s Simplifier, src string) (expr.Expr, error) {
	t.Helper()
	return s.Simplify(context.Background(), expr.MustParse(src))
}

func TestRationalNormalForm(t *testing.T) {
	r := NewRational()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"same fraction", "A / (A + C) - A / (A + C)", "0"},
		{"constants", "1 - 0.5 - 0.5", "0"},
		{"self quotient", "(A + B) / (A + B)", "1"},
		{"cancel factor", "(A * A + A * C) / (A + C)", "A"},
		{"content folded", "2 * A / (4 * A + 4 * C)", "0.5 * A / (A + C)"},
		{"negative leading term", "C - A", "-A + C"},
		{"powers as products", "A * A * B", "A * A * B"},
		{"nested quotient", "1 / (1 / A)", "A"},
		{"different denominators", "A / (A + B) - D / (B + D)", "(A * B - B * D) / ((A + B) * (B + D))"},
		{
			"balanced accuracy against pairwise score",
			"(A / (A + C) + D / (B + D)) / 2 - (A * D + 0.5 * A * B + 0.5 * C * D + 0 * C * B) / ((A + C) * (B + D))",
			"0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := simplifyString(t, r, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String(got))
		})
	}
}

func TestRationalZeroIsLiteral(t *testing.T) {
	got, err := simplifyString(t, NewRational(), "B / (B + D) - (1 - D / (B + D))")
	require.NoError(t, err)
	assert.True(t, expr.IsZero(got))
}

func TestRationalPreservesValue(t *testing.T) {
	r := NewRational()
	src := "(A * B - B * D) / ((A + B) * (B + D)) + C / (A + C)"
	in := expr.MustParse(src)

	out, err := r.Simplify(context.Background(), in)
	require.NoError(t, err)

	env := expr.Env{"A": 3, "B": 2, "C": 5, "D": 7}
	want, err := expr.Eval(in, env)
	require.NoError(t, err)
	got, err := expr.Eval(out, env)
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(got), "want %s got %s", want, got)
}

func TestRationalErrors(t *testing.T) {
	r := NewRational()

	tests := []struct {
		name   string
		in     string
		target error
	}{
		{"identically zero denominator", "A / (B - B)", errZeroDenominator},
		{"unresolved reference", "Precision - A", expr.ErrUnresolvedRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := simplifyString(t, r, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSimplification)
			assert.ErrorIs(t, err, tt.target)

			var se *SimplificationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "rational", se.Backend)
			assert.Equal(t, tt.in, se.Input)
		})
	}
}

func TestRationalNil(t *testing.T) {
	_, err := NewRational().Simplify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSimplification)
}

func TestRationalMaxTerms(t *testing.T) {
	r := NewRational(WithMaxTerms(3))

	_, err := simplifyString(t, r, "(A + B + C + D) * (A + B + C + D)")
	assert.ErrorIs(t, err, ErrSimplification)
	assert.ErrorIs(t, err, errTooLarge)

	unlimited := NewRational(WithMaxTerms(0))
	out, err := simplifyString(t, unlimited, "(A + B + C + D) * (A + B + C + D)")
	require.NoError(t, err)
	assert.Contains(t, expr.String(out), "2 * A * B")
}

func TestRationalCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRational().Simplify(ctx, expr.MustParse("A - A"))
	assert.ErrorIs(t, err, ErrSimplification)
	assert.True(t, errors.Is(err, context.Canceled))
}
