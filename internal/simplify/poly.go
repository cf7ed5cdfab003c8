package simplify

import (
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/metricalg/internal/expr"
)

// monomial holds the exponents of A, B, C, D.
type monomial [4]int

func (m monomial) add(o monomial) monomial {
	for i := range m {
		m[i] += o[i]
	}
	return m
}

// divides reports whether m divides o, i.e. every exponent of m is at most
// the corresponding exponent of o.
func (m monomial) divides(o monomial) bool {
	for i := range m {
		if m[i] > o[i] {
			return false
		}
	}
	return true
}

func (m monomial) sub(o monomial) monomial {
	for i := range m {
		m[i] -= o[i]
	}
	return m
}

func (m monomial) degree() int {
	return m[0] + m[1] + m[2] + m[3]
}

// compareLex orders monomials lexicographically with A > B > C > D.
func compareLex(a, b monomial) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// symbolIndex maps a base symbol to its exponent slot.
func symbolIndex(s expr.Symbol) (int, bool) {
	i := slices.Index(expr.BaseSymbols, s)
	return i, i >= 0
}

// poly is a polynomial over the rationals in the four base symbols.
// Zero coefficients are never stored, so the zero polynomial is empty.
type poly map[monomial]*big.Rat

func constPoly(r *big.Rat) poly {
	p := poly{}
	if r.Sign() != 0 {
		p[monomial{}] = new(big.Rat).Set(r)
	}
	return p
}

func symPoly(i int) poly {
	var m monomial
	m[i] = 1
	return poly{m: big.NewRat(1, 1)}
}

func (p poly) isZero() bool {
	return len(p) == 0
}

// constant returns the value of a constant polynomial.
func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		c, ok := p[monomial{}]
		if !ok {
			return nil, false
		}
		return new(big.Rat).Set(c), true
	default:
		return nil, false
	}
}

func (p poly) clone() poly {
	out := make(poly, len(p))
	for m, c := range p {
		out[m] = new(big.Rat).Set(c)
	}
	return out
}

// addTerm adds c*m to p in place.
func (p poly) addTerm(m monomial, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	cur, ok := p[m]
	if !ok {
		p[m] = new(big.Rat).Set(c)
		return
	}
	cur.Add(cur, c)
	if cur.Sign() == 0 {
		delete(p, m)
	}
}

func (p poly) add(q poly) poly {
	out := p.clone()
	for m, c := range q {
		out.addTerm(m, c)
	}
	return out
}

func (p poly) neg() poly {
	out := make(poly, len(p))
	for m, c := range p {
		out[m] = new(big.Rat).Neg(c)
	}
	return out
}

func (p poly) sub(q poly) poly {
	return p.add(q.neg())
}

func (p poly) mul(q poly) poly {
	out := poly{}
	t := new(big.Rat)
	for m1, c1 := range p {
		for m2, c2 := range q {
			out.addTerm(m1.add(m2), t.Mul(c1, c2))
		}
	}
	return out
}

func (p poly) scale(r *big.Rat) poly {
	if r.Sign() == 0 {
		return poly{}
	}
	out := make(poly, len(p))
	for m, c := range p {
		out[m] = new(big.Rat).Mul(c, r)
	}
	return out
}

func (p poly) equal(q poly) bool {
	if len(p) != len(q) {
		return false
	}
	for m, c := range p {
		d, ok := q[m]
		if !ok || c.Cmp(d) != 0 {
			return false
		}
	}
	return true
}

// monomials returns the monomials of p, highest first in lex order.
func (p poly) monomials() []monomial {
	ms := make([]monomial, 0, len(p))
	for m := range p {
		ms = append(ms, m)
	}
	slices.SortFunc(ms, func(a, b monomial) int { return compareLex(b, a) })
	return ms
}

// leading returns the lex-leading monomial and its coefficient.
// p must be non-zero.
func (p poly) leading() (monomial, *big.Rat) {
	var lm monomial
	first := true
	for m := range p {
		if first || compareLex(m, lm) > 0 {
			lm = m
			first = false
		}
	}
	return lm, p[lm]
}

// monic divides p by its leading coefficient and returns that coefficient.
func (p poly) monic() (poly, *big.Rat) {
	_, lc := p.leading()
	inv := new(big.Rat).Inv(lc)
	return p.scale(inv), new(big.Rat).Set(lc)
}

// divExact returns p/d when d divides p exactly.
//
// Multivariate division by a single divisor under a fixed monomial order is
// exact-or-fail: if the leading monomial of the remainder is not divisible
// by the leading monomial of d, then d does not divide p.
func (p poly) divExact(d poly) (poly, bool) {
	if d.isZero() {
		return nil, false
	}
	dm, dc := d.leading()
	q := poly{}
	r := p.clone()
	for !r.isZero() {
		rm, rc := r.leading()
		if !dm.divides(rm) {
			return nil, false
		}
		tm := rm.sub(dm)
		tc := new(big.Rat).Quo(rc, dc)
		q.addTerm(tm, tc)
		term := poly{tm: tc}
		r = r.sub(term.mul(d))
	}
	return q, true
}

// comparePoly orders polynomials by their terms, highest monomial first.
func comparePoly(p, q poly) int {
	pm, qm := p.monomials(), q.monomials()
	for i := 0; i < len(pm) && i < len(qm); i++ {
		if c := compareLex(pm[i], qm[i]); c != 0 {
			return -c
		}
		if c := p[pm[i]].Cmp(q[qm[i]]); c != 0 {
			return -c
		}
	}
	return len(pm) - len(qm)
}

// key is a stable string identity for p.
func (p poly) key() string {
	var sb strings.Builder
	for _, m := range p.monomials() {
		sb.WriteString(p[m].RatString())
		for _, e := range m {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(e))
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// toExpr renders p as a sum of terms, highest lex monomial first.
// Negative coefficients after the first term become subtraction.
func (p poly) toExpr() expr.Expr {
	if p.isZero() {
		return expr.Int(0)
	}
	var acc expr.Expr
	for _, m := range p.monomials() {
		c := p[m]
		if acc == nil {
			if c.Sign() < 0 {
				acc = expr.Neg{X: termExpr(m, new(big.Rat).Neg(c))}
			} else {
				acc = termExpr(m, c)
			}
			continue
		}
		if c.Sign() < 0 {
			acc = expr.Sub{X: acc, Y: termExpr(m, new(big.Rat).Neg(c))}
		} else {
			acc = expr.Add{X: acc, Y: termExpr(m, c)}
		}
	}
	return acc
}

// termExpr renders c * m for a positive coefficient c.
func termExpr(m monomial, c *big.Rat) expr.Expr {
	var factors []expr.Expr
	one := c.Cmp(big.NewRat(1, 1)) == 0
	if !one || m.degree() == 0 {
		factors = append(factors, expr.FromRat(c))
	}
	for i, e := range m {
		for range e {
			factors = append(factors, expr.S(expr.BaseSymbols[i]))
		}
	}
	return expr.Product(factors...)
}
