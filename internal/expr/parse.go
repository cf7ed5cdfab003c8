package expr

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"
)

// ErrInvalidExpression is returned for formulas that cannot be represented.
var ErrInvalidExpression = errors.New("invalid expression")

// ParseError describes a formula that failed to parse.
// It unwraps to ErrInvalidExpression.
type ParseError struct {
	Source  string
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("parse %q: column %d: %s", e.Source, e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("parse %q: %s", e.Source, e.Message)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidExpression
}

// Parse reads an infix formula such as "2 * Precision * Recall / (Precision + Recall)".
//
// Formulas use CUE expression syntax (the same grammar the metric catalog is
// written in). Identifiers A, B, C and D become base symbols; any other
// identifier becomes a Ref. Numeric literals are exact: "0.5" is 1/2.
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Source: src, Message: "empty formula"}
	}

	node, err := parser.ParseExpr("formula", src)
	if err != nil {
		return nil, &ParseError{Source: src, Message: err.Error()}
	}

	return fromAST(src, node)
}

// MustParse is like Parse but panics on error.
// Use only in tests or for formulas known to be valid.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func fromAST(src string, node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.Ident:
		if IsBaseSymbol(n.Name) {
			return Sym{Name: Symbol(n.Name)}, nil
		}
		return Ref{Name: n.Name}, nil

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, &ParseError{Source: src, Message: fmt.Sprintf("unsupported literal %s", n.Value), Pos: n.Pos()}
		}
		r, ok := new(big.Rat).SetString(strings.ReplaceAll(n.Value, "_", ""))
		if !ok {
			return nil, &ParseError{Source: src, Message: fmt.Sprintf("invalid number %s", n.Value), Pos: n.Pos()}
		}
		return Num{val: r}, nil

	case *ast.ParenExpr:
		return fromAST(src, n.X)

	case *ast.UnaryExpr:
		x, err := fromAST(src, n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			return Neg{X: x}, nil
		case token.ADD:
			return x, nil
		default:
			return nil, &ParseError{Source: src, Message: fmt.Sprintf("unsupported operator %s", n.Op), Pos: n.Pos()}
		}

	case *ast.BinaryExpr:
		x, err := fromAST(src, n.X)
		if err != nil {
			return nil, err
		}
		y, err := fromAST(src, n.Y)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.ADD:
			return Add{X: x, Y: y}, nil
		case token.SUB:
			return Sub{X: x, Y: y}, nil
		case token.MUL:
			return Mul{X: x, Y: y}, nil
		case token.QUO:
			return Div{X: x, Y: y}, nil
		default:
			return nil, &ParseError{Source: src, Message: fmt.Sprintf("unsupported operator %s", n.Op), Pos: n.OpPos}
		}

	default:
		return nil, &ParseError{Source: src, Message: fmt.Sprintf("unsupported syntax %T", node), Pos: node.Pos()}
	}
}
