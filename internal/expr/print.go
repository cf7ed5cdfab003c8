package expr

import (
	"math/big"
	"strings"
)

// Operator precedence levels used by the printer.
const (
	precAdd   = 1
	precMul   = 2
	precUnary = 3
	precAtom  = 4
)

// String renders e in infix form with the minimum parentheses needed for
// Parse to rebuild the same tree.
//
// Example: Div{S(A), Add{S(A), S(C)}} renders as "A / (A + C)".
func String(e Expr) string {
	var b strings.Builder
	write(&b, e)
	return b.String()
}

func write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Num:
		b.WriteString(formatNum(n))
	case Sym:
		b.WriteString(string(n.Name))
	case Ref:
		b.WriteString(n.Name)
	case Neg:
		b.WriteByte('-')
		writeOperand(b, n.X, precedence(n.X) <= precUnary)
	case Add:
		writeBinary(b, n.X, " + ", n.Y, precAdd)
	case Sub:
		writeBinary(b, n.X, " - ", n.Y, precAdd)
	case Mul:
		writeBinary(b, n.X, " * ", n.Y, precMul)
	case Div:
		writeBinary(b, n.X, " / ", n.Y, precMul)
	case nil:
		b.WriteString("<nil>")
	}
}

// writeBinary writes "x op y". Operators are left-associative, so the right
// operand is wrapped at equal precedence. Unary operands on the right are
// always wrapped to avoid "A - -B".
func writeBinary(b *strings.Builder, x Expr, op string, y Expr, p int) {
	writeOperand(b, x, precedence(x) < p)
	b.WriteString(op)
	py := precedence(y)
	writeOperand(b, y, py <= p || py == precUnary)
}

func writeOperand(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
		write(b, e)
		b.WriteByte(')')
		return
	}
	write(b, e)
}

func precedence(e Expr) int {
	switch n := e.(type) {
	case Num:
		if _, ok := decimalString(n.Rat()); !ok {
			return precMul // printed as a/b
		}
		if n.Sign() < 0 {
			return precUnary
		}
		return precAtom
	case Sym, Ref:
		return precAtom
	case Neg:
		return precUnary
	case Add, Sub:
		return precAdd
	case Mul, Div:
		return precMul
	default:
		return precAtom
	}
}

// formatNum prints integers as-is, terminating fractions as decimals
// (1/2 -> "0.5") and everything else as "a/b".
func formatNum(n Num) string {
	r := n.Rat()
	if s, ok := decimalString(r); ok {
		return s
	}
	return r.Num().String() + "/" + r.Denom().String()
}

// decimalString returns the exact decimal form of r when its denominator
// has no prime factors other than 2 and 5.
func decimalString(r *big.Rat) (string, bool) {
	if r.IsInt() {
		return r.Num().String(), true
	}

	d := new(big.Int).Set(r.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	mod := new(big.Int)
	twos, fives := 0, 0
	for {
		q, m := new(big.Int).QuoRem(d, two, mod)
		if m.Sign() != 0 {
			break
		}
		d = q
		twos++
	}
	for {
		q, m := new(big.Int).QuoRem(d, five, mod)
		if m.Sign() != 0 {
			break
		}
		d = q
		fives++
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		return "", false
	}
	return r.FloatString(max(twos, fives)), true
}
