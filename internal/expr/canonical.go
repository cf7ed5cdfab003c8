package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for an expression.
// This is the ONLY serialization used for formula identity.
//
// Node encoding:
//
//	Num -> {"num":"1/2"}
//	Sym -> {"sym":"A"}
//	Ref -> {"ref":"Precision"}
//	Neg -> {"op":"neg","x":...}
//	Add/Sub/Mul/Div -> {"op":"add","x":...,"y":...}
//
// Object keys are sorted by UTF-16 code units, strings are NFC normalized and
// HTML characters are not escaped.
func MarshalCanonical(e Expr) ([]byte, error) {
	tree, err := toCanonical(e)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(tree)
}

func toCanonical(e Expr) (any, error) {
	switch n := e.(type) {
	case Num:
		return map[string]any{"num": n.Rat().RatString()}, nil
	case Sym:
		return map[string]any{"sym": string(n.Name)}, nil
	case Ref:
		return map[string]any{"ref": n.Name}, nil
	case Neg:
		x, err := toCanonical(n.X)
		if err != nil {
			return nil, err
		}
		return map[string]any{"op": "neg", "x": x}, nil
	case Add:
		return binaryCanonical("add", n.X, n.Y)
	case Sub:
		return binaryCanonical("sub", n.X, n.Y)
	case Mul:
		return binaryCanonical("mul", n.X, n.Y)
	case Div:
		return binaryCanonical("div", n.X, n.Y)
	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrInvalidExpression, e)
	}
}

func binaryCanonical(op string, a, b Expr) (any, error) {
	x, err := toCanonical(a)
	if err != nil {
		return nil, err
	}
	y, err := toCanonical(b)
	if err != nil {
		return nil, err
	}
	return map[string]any{"op": op, "x": x, "y": y}, nil
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString NFC-normalizes s and encodes it without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	// Encoder appends a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareUTF16 orders strings by UTF-16 code units (RFC 8785).
// Go's native string order is UTF-8 bytes, which differs above U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// MarshalCanonicalValue encodes a plain value (string, int, int64, bool,
// []any, map[string]any) with the same canonical rules as MarshalCanonical.
// Floats and nulls are rejected.
func MarshalCanonicalValue(v any) ([]byte, error) {
	return marshalCanonical(v)
}
