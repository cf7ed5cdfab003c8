package simplify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/roach88/metricalg/internal/expr"
)

var (
	errZeroDenominator = errors.New("denominator is identically zero")
	errUnsupported     = errors.New("unsupported node")
	errTooLarge        = errors.New("expression too large")
)

// frac is a rational function num / (den[0] * den[1] * ...).
//
// Every denominator factor is a non-constant monic polynomial; constants
// are folded into num. Factors are kept as written rather than expanded, so
// a common denominator is the multiset union of factor lists.
type frac struct {
	num poly
	den []poly
}

func constFrac(r *big.Rat) frac {
	return frac{num: constPoly(r)}
}

// isZero reports whether f is identically zero.
func (f frac) isZero() bool {
	return f.num.isZero()
}

func (f frac) neg() frac {
	return frac{num: f.num.neg(), den: f.den}
}

func (f frac) add(g frac) frac {
	used := make([]bool, len(f.den))
	var onlyG []poly
	for _, gd := range g.den {
		matched := false
		for i, fd := range f.den {
			if !used[i] && fd.equal(gd) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			onlyG = append(onlyG, gd)
		}
	}
	var onlyF []poly
	for i, fd := range f.den {
		if !used[i] {
			onlyF = append(onlyF, fd)
		}
	}

	num := f.num.mul(product(onlyG)).add(g.num.mul(product(onlyF)))
	den := append(slices.Clone(f.den), onlyG...)
	return frac{num: num, den: den}.cancel()
}

func (f frac) sub(g frac) frac {
	return f.add(g.neg())
}

func (f frac) mul(g frac) frac {
	den := append(slices.Clone(f.den), g.den...)
	return frac{num: f.num.mul(g.num), den: den}.cancel()
}

func (f frac) div(g frac) (frac, error) {
	if g.isZero() {
		return frac{}, errZeroDenominator
	}
	num := f.num.mul(product(g.den))
	den := slices.Clone(f.den)
	if c, ok := g.num.constant(); ok {
		num = num.scale(new(big.Rat).Inv(c))
	} else {
		factor, lc := g.num.monic()
		num = num.scale(new(big.Rat).Inv(lc))
		den = append(den, factor)
	}
	return frac{num: num, den: den}.cancel(), nil
}

// cancel removes every denominator factor that divides the numerator
// exactly. A zero numerator drops the denominator entirely.
func (f frac) cancel() frac {
	if f.num.isZero() {
		return frac{num: poly{}}
	}
	num := f.num
	var den []poly
	for _, d := range f.den {
		if q, ok := num.divExact(d); ok {
			num = q
			continue
		}
		den = append(den, d)
	}
	return frac{num: num, den: den}
}

// size is the number of numerator terms plus denominator factors.
func (f frac) size() int {
	return len(f.num) + len(f.den)
}

// toExpr renders f. The zero function becomes the literal 0.
func (f frac) toExpr() expr.Expr {
	if f.num.isZero() {
		return expr.Int(0)
	}
	num := f.num.toExpr()
	if len(f.den) == 0 {
		return num
	}
	den := slices.Clone(f.den)
	slices.SortStableFunc(den, comparePoly)
	factors := make([]expr.Expr, len(den))
	for i, d := range den {
		factors[i] = d.toExpr()
	}
	return expr.Div{X: num, Y: expr.Product(factors...)}
}

func product(ps []poly) poly {
	out := constPoly(big.NewRat(1, 1))
	for _, p := range ps {
		out = out.mul(p)
	}
	return out
}

// converter turns an expanded expression into a rational function.
type converter struct {
	ctx      context.Context
	maxTerms int
}

func (c *converter) convert(e expr.Expr) (frac, error) {
	if err := c.ctx.Err(); err != nil {
		return frac{}, err
	}
	f, err := c.node(e)
	if err != nil {
		return frac{}, err
	}
	if c.maxTerms > 0 && f.size() > c.maxTerms {
		return frac{}, fmt.Errorf("%w: %d terms exceeds limit %d", errTooLarge, f.size(), c.maxTerms)
	}
	return f, nil
}

func (c *converter) node(e expr.Expr) (frac, error) {
	switch n := e.(type) {
	case expr.Num:
		return constFrac(n.Rat()), nil
	case expr.Sym:
		i, ok := symbolIndex(n.Name)
		if !ok {
			return frac{}, fmt.Errorf("%w: symbol %q", errUnsupported, n.Name)
		}
		return frac{num: symPoly(i)}, nil
	case expr.Ref:
		return frac{}, fmt.Errorf("%w: %s", expr.ErrUnresolvedRef, n.Name)
	case expr.Neg:
		x, err := c.convert(n.X)
		if err != nil {
			return frac{}, err
		}
		return x.neg(), nil
	case expr.Add:
		x, y, err := c.pair(n.X, n.Y)
		if err != nil {
			return frac{}, err
		}
		return x.add(y), nil
	case expr.Sub:
		x, y, err := c.pair(n.X, n.Y)
		if err != nil {
			return frac{}, err
		}
		return x.sub(y), nil
	case expr.Mul:
		x, y, err := c.pair(n.X, n.Y)
		if err != nil {
			return frac{}, err
		}
		return x.mul(y), nil
	case expr.Div:
		x, y, err := c.pair(n.X, n.Y)
		if err != nil {
			return frac{}, err
		}
		q, err := x.div(y)
		if err != nil {
			return frac{}, fmt.Errorf("%w: %s", err, expr.String(n.Y))
		}
		return q, nil
	case nil:
		return frac{}, fmt.Errorf("%w: nil expression", errUnsupported)
	default:
		return frac{}, fmt.Errorf("%w: %T", errUnsupported, e)
	}
}

func (c *converter) pair(a, b expr.Expr) (frac, frac, error) {
	x, err := c.convert(a)
	if err != nil {
		return frac{}, frac{}, err
	}
	y, err := c.convert(b)
	if err != nil {
		return frac{}, frac{}, err
	}
	return x, y, nil
}
