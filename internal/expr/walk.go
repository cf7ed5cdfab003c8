package expr

import (
	"fmt"
	"slices"
)

// Symbols returns the distinct base symbols used by e, in canonical order.
func Symbols(e Expr) []Symbol {
	seen := make(map[Symbol]bool)
	visit(e, func(n Expr) {
		if s, ok := n.(Sym); ok {
			seen[s.Name] = true
		}
	})

	var out []Symbol
	for _, s := range BaseSymbols {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Refs returns the distinct metric names referenced by e, in order of first
// appearance (left to right).
func Refs(e Expr) []string {
	var out []string
	visit(e, func(n Expr) {
		if r, ok := n.(Ref); ok && !slices.Contains(out, r.Name) {
			out = append(out, r.Name)
		}
	})
	return out
}

// visit walks e depth-first, left operand before right.
func visit(e Expr, fn func(Expr)) {
	fn(e)
	switch n := e.(type) {
	case Neg:
		visit(n.X, fn)
	case Add:
		visit(n.X, fn)
		visit(n.Y, fn)
	case Sub:
		visit(n.X, fn)
		visit(n.Y, fn)
	case Mul:
		visit(n.X, fn)
		visit(n.Y, fn)
	case Div:
		visit(n.X, fn)
		visit(n.Y, fn)
	}
}

// Resolve replaces every Ref in e with the expression returned by lookup.
// The replacement is inserted as-is; lookup should return expanded formulas.
func Resolve(e Expr, lookup func(name string) (Expr, error)) (Expr, error) {
	switch n := e.(type) {
	case Num, Sym:
		return e, nil
	case Ref:
		r, err := lookup(n.Name)
		if err != nil {
			return nil, err
		}
		return r, nil
	case Neg:
		x, err := Resolve(n.X, lookup)
		if err != nil {
			return nil, err
		}
		return Neg{X: x}, nil
	case Add:
		x, y, err := resolvePair(n.X, n.Y, lookup)
		if err != nil {
			return nil, err
		}
		return Add{X: x, Y: y}, nil
	case Sub:
		x, y, err := resolvePair(n.X, n.Y, lookup)
		if err != nil {
			return nil, err
		}
		return Sub{X: x, Y: y}, nil
	case Mul:
		x, y, err := resolvePair(n.X, n.Y, lookup)
		if err != nil {
			return nil, err
		}
		return Mul{X: x, Y: y}, nil
	case Div:
		x, y, err := resolvePair(n.X, n.Y, lookup)
		if err != nil {
			return nil, err
		}
		return Div{X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, e)
	}
}

func resolvePair(a, b Expr, lookup func(string) (Expr, error)) (Expr, Expr, error) {
	x, err := Resolve(a, lookup)
	if err != nil {
		return nil, nil, err
	}
	y, err := Resolve(b, lookup)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// Equal reports whether a and b are structurally identical.
// Constants compare by value, so 0.5 equals 1/2.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case Num:
		y, ok := b.(Num)
		return ok && x.Rat().Cmp(y.Rat()) == 0
	case Sym:
		y, ok := b.(Sym)
		return ok && x.Name == y.Name
	case Ref:
		y, ok := b.(Ref)
		return ok && x.Name == y.Name
	case Neg:
		y, ok := b.(Neg)
		return ok && Equal(x.X, y.X)
	case Add:
		y, ok := b.(Add)
		return ok && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case Sub:
		y, ok := b.(Sub)
		return ok && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case Mul:
		y, ok := b.(Mul)
		return ok && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case Div:
		y, ok := b.(Div)
		return ok && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	default:
		return false
	}
}
