package expr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFormula    = "metricalg/formula/v1"
	DomainComparison = "metricalg/comparison/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FormulaID computes the content-addressed identity of an expression.
// Structurally identical expressions share an ID; 0.5 and 1/2 are identical.
func FormulaID(e Expr) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("FormulaID: %w", err)
	}
	return hashWithDomain(DomainFormula, canonical), nil
}

// MustFormulaID is like FormulaID but panics on error.
// Use only in tests or when the expression is known to be well formed.
func MustFormulaID(e Expr) string {
	id, err := FormulaID(e)
	if err != nil {
		panic(err)
	}
	return id
}

// ComparisonID identifies an equivalence check of two metrics by name and
// by the IDs of their expanded formulas, so redefining a metric changes it.
func ComparisonID(metricA, formulaA, metricB, formulaB string) (string, error) {
	canonical, err := marshalCanonical(map[string]any{
		"metric_a":  metricA,
		"formula_a": formulaA,
		"metric_b":  metricB,
		"formula_b": formulaB,
	})
	if err != nil {
		return "", fmt.Errorf("ComparisonID: %w", err)
	}
	return hashWithDomain(DomainComparison, canonical), nil
}
