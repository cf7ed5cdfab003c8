package expr

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrDivisionByZero is returned when a denominator evaluates to zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnresolvedRef is returned when evaluating an expression that still
	// contains metric references. Expand the expression first.
	ErrUnresolvedRef = errors.New("unresolved metric reference")

	// ErrUnboundSymbol is returned when the environment lacks a base symbol.
	ErrUnboundSymbol = errors.New("unbound symbol")
)

// Env binds base symbols to concrete counts.
type Env map[Symbol]int64

// Eval evaluates e exactly.
// Returns ErrDivisionByZero (wrapped) if any denominator is zero.
func Eval(e Expr, env Env) (*big.Rat, error) {
	switch n := e.(type) {
	case Num:
		return n.Rat(), nil
	case Sym:
		v, ok := env[n.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundSymbol, n.Name)
		}
		return new(big.Rat).SetInt64(v), nil
	case Ref:
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedRef, n.Name)
	case Neg:
		x, err := Eval(n.X, env)
		if err != nil {
			return nil, err
		}
		return x.Neg(x), nil
	case Add:
		x, y, err := evalPair(n.X, n.Y, env)
		if err != nil {
			return nil, err
		}
		return x.Add(x, y), nil
	case Sub:
		x, y, err := evalPair(n.X, n.Y, env)
		if err != nil {
			return nil, err
		}
		return x.Sub(x, y), nil
	case Mul:
		x, y, err := evalPair(n.X, n.Y, env)
		if err != nil {
			return nil, err
		}
		return x.Mul(x, y), nil
	case Div:
		x, y, err := evalPair(n.X, n.Y, env)
		if err != nil {
			return nil, err
		}
		if y.Sign() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrDivisionByZero, String(n.Y))
		}
		return x.Quo(x, y), nil
	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, e)
	}
}

func evalPair(a, b Expr, env Env) (*big.Rat, *big.Rat, error) {
	x, err := Eval(a, env)
	if err != nil {
		return nil, nil, err
	}
	y, err := Eval(b, env)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// EvalFloat evaluates e in float64 arithmetic, following the tree as written.
// Returns ErrDivisionByZero (wrapped) if any denominator is exactly zero.
func EvalFloat(e Expr, env Env) (float64, error) {
	switch n := e.(type) {
	case Num:
		f, _ := n.Rat().Float64()
		return f, nil
	case Sym:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnboundSymbol, n.Name)
		}
		return float64(v), nil
	case Ref:
		return 0, fmt.Errorf("%w: %s", ErrUnresolvedRef, n.Name)
	case Neg:
		x, err := EvalFloat(n.X, env)
		return -x, err
	case Add:
		x, y, err := evalFloatPair(n.X, n.Y, env)
		return x + y, err
	case Sub:
		x, y, err := evalFloatPair(n.X, n.Y, env)
		return x - y, err
	case Mul:
		x, y, err := evalFloatPair(n.X, n.Y, env)
		return x * y, err
	case Div:
		x, y, err := evalFloatPair(n.X, n.Y, env)
		if err != nil {
			return 0, err
		}
		if y == 0 {
			return 0, fmt.Errorf("%w: %s", ErrDivisionByZero, String(n.Y))
		}
		return x / y, nil
	default:
		return 0, fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, e)
	}
}

func evalFloatPair(a, b Expr, env Env) (float64, float64, error) {
	x, err := EvalFloat(a, env)
	if err != nil {
		return 0, 0, err
	}
	y, err := EvalFloat(b, env)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
