package expr

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprSealed(t *testing.T) {
	// Compile-time check via assignment
	var _ Expr = Num{}
	var _ Expr = Sym{}
	var _ Expr = Ref{}
	var _ Expr = Neg{}
	var _ Expr = Add{}
	var _ Expr = Sub{}
	var _ Expr = Mul{}
	var _ Expr = Div{}
}

func TestNumZeroValue(t *testing.T) {
	var n Num
	assert.True(t, n.IsZero())
	assert.Equal(t, 0, n.Sign())
	assert.Equal(t, "0", n.Rat().RatString())
}

func TestNumIsImmutable(t *testing.T) {
	r := big.NewRat(1, 2)
	n := FromRat(r)
	r.SetInt64(7)

	assert.Equal(t, "1/2", n.Rat().RatString())

	got := n.Rat()
	got.SetInt64(9)
	assert.Equal(t, "1/2", n.Rat().RatString())
}

func TestIsBaseSymbol(t *testing.T) {
	for _, s := range []string{"A", "B", "C", "D"} {
		assert.True(t, IsBaseSymbol(s), s)
	}
	for _, s := range []string{"a", "E", "TP", ""} {
		assert.False(t, IsBaseSymbol(s), s)
	}
}

func TestSumAndProduct(t *testing.T) {
	assert.True(t, IsZero(Sum()))
	assert.Equal(t, "A + B + C", String(Sum(S(TruePositives), S(FalsePositives), S(FalseNegatives))))
	assert.Equal(t, "1", String(Product()))
	assert.Equal(t, "A * D", String(Product(S(TruePositives), S(TrueNegatives))))
}

func TestIsZeroIsLiteral(t *testing.T) {
	assert.True(t, IsZero(Int(0)))
	assert.False(t, IsZero(Int(1)))
	assert.False(t, IsZero(Sub{X: S(TruePositives), Y: S(TruePositives)}))
}

func TestSymbolsAndRefs(t *testing.T) {
	e := MustParse("D / (B + D) + Precision * A - Precision / Recall")

	assert.Equal(t, []Symbol{TruePositives, FalsePositives, TrueNegatives}, Symbols(e))
	assert.Equal(t, []string{"Precision", "Recall"}, Refs(e))
	assert.Empty(t, Refs(MustParse("A / (A + C)")))
}

func TestResolve(t *testing.T) {
	defs := map[string]Expr{
		"Sensitivity": MustParse("A / (A + C)"),
		"Specificity": MustParse("D / (B + D)"),
	}
	lookup := func(name string) (Expr, error) {
		e, ok := defs[name]
		if !ok {
			return nil, ErrUnresolvedRef
		}
		return e, nil
	}

	got, err := Resolve(MustParse("(Sensitivity + Specificity) / 2"), lookup)
	require.NoError(t, err)
	assert.Equal(t, "(A / (A + C) + D / (B + D)) / 2", String(got))
	assert.Empty(t, Refs(got))

	_, err = Resolve(MustParse("Missing + 1"), lookup)
	assert.ErrorIs(t, err, ErrUnresolvedRef)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(MustParse("0.5 * A"), Mul{X: Rat(1, 2), Y: S(TruePositives)}))
	assert.True(t, Equal(MustParse("A / (A + C)"), MustParse("A/(A+C)")))
	assert.False(t, Equal(MustParse("A + C"), MustParse("C + A")))
	assert.False(t, Equal(MustParse("A"), R("A2")))
}
