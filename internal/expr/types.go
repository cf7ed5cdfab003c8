package expr

import (
	"math/big"
)

// Expr is a sealed interface for formula nodes.
// Only Num, Sym, Ref, Neg, Add, Sub, Mul and Div implement it.
type Expr interface {
	isExpr() // Sealed
}

// Symbol names one of the four base counts.
type Symbol string

// Base count symbols.
const (
	TruePositives  Symbol = "A"
	FalsePositives Symbol = "B"
	FalseNegatives Symbol = "C"
	TrueNegatives  Symbol = "D"
)

// BaseSymbols lists the base symbols in canonical order.
var BaseSymbols = []Symbol{TruePositives, FalsePositives, FalseNegatives, TrueNegatives}

// IsBaseSymbol reports whether name is one of A, B, C, D.
func IsBaseSymbol(name string) bool {
	switch Symbol(name) {
	case TruePositives, FalsePositives, FalseNegatives, TrueNegatives:
		return true
	}
	return false
}

// Num is an exact rational constant.
// The zero value is 0.
type Num struct {
	val *big.Rat
}

// Sym is a reference to a base count.
type Sym struct {
	Name Symbol
}

// Ref is a reference to a previously defined metric.
type Ref struct {
	Name string
}

// Neg is arithmetic negation.
type Neg struct {
	X Expr
}

// Add is X + Y.
type Add struct {
	X, Y Expr
}

// Sub is X - Y.
type Sub struct {
	X, Y Expr
}

// Mul is X * Y.
type Mul struct {
	X, Y Expr
}

// Div is X / Y.
type Div struct {
	X, Y Expr
}

func (Num) isExpr() {}
func (Sym) isExpr() {}
func (Ref) isExpr() {}
func (Neg) isExpr() {}
func (Add) isExpr() {}
func (Sub) isExpr() {}
func (Mul) isExpr() {}
func (Div) isExpr() {}

// Int creates an integer constant.
func Int(n int64) Num {
	return Num{val: new(big.Rat).SetInt64(n)}
}

// Rat creates the constant a/b. Panics if b is zero.
func Rat(a, b int64) Num {
	return Num{val: big.NewRat(a, b)}
}

// FromRat creates a constant from r. The value is copied.
func FromRat(r *big.Rat) Num {
	if r == nil {
		return Num{}
	}
	return Num{val: new(big.Rat).Set(r)}
}

// Rat returns a copy of the constant's value.
func (n Num) Rat() *big.Rat {
	if n.val == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(n.val)
}

// IsZero reports whether the constant is exactly 0.
func (n Num) IsZero() bool {
	return n.val == nil || n.val.Sign() == 0
}

// IsOne reports whether the constant is exactly 1.
func (n Num) IsOne() bool {
	return n.val != nil && n.val.IsInt() && n.val.Num().IsInt64() && n.val.Num().Int64() == 1
}

// Sign returns -1, 0 or +1.
func (n Num) Sign() int {
	if n.val == nil {
		return 0
	}
	return n.val.Sign()
}

// Shorthand constructors for building formulas in Go code.

// S returns the base symbol node for s.
func S(s Symbol) Sym { return Sym{Name: s} }

// R returns a reference to the named metric.
func R(name string) Ref { return Ref{Name: name} }

// Sum folds terms into a left-associated chain of Add.
// Sum() is 0.
func Sum(terms ...Expr) Expr {
	if len(terms) == 0 {
		return Int(0)
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = Add{X: acc, Y: t}
	}
	return acc
}

// Product folds factors into a left-associated chain of Mul.
// Product() is 1.
func Product(factors ...Expr) Expr {
	if len(factors) == 0 {
		return Int(1)
	}
	acc := factors[0]
	for _, f := range factors[1:] {
		acc = Mul{X: acc, Y: f}
	}
	return acc
}

// IsZero reports whether e is the literal constant 0.
// It does not simplify: A - A is not literally zero.
func IsZero(e Expr) bool {
	n, ok := e.(Num)
	return ok && n.IsZero()
}
