// Package confusion models concrete confusion matrices and their bounded
// enumeration.
package confusion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/metricalg/internal/expr"
)

// ErrInvalidMatrix is returned for matrices that violate the count invariants.
var ErrInvalidMatrix = errors.New("invalid confusion matrix")

// Matrix is a concrete assignment of the four base counts.
type Matrix struct {
	TP int64 `json:"tp" yaml:"tp"` // A
	FP int64 `json:"fp" yaml:"fp"` // B
	FN int64 `json:"fn" yaml:"fn"` // C
	TN int64 `json:"tn" yaml:"tn"` // D
}

// Validate checks that all counts are non-negative and that at least one
// class (actual positives or actual negatives) is non-empty.
func (m Matrix) Validate() error {
	if m.TP < 0 || m.FP < 0 || m.FN < 0 || m.TN < 0 {
		return fmt.Errorf("%w: negative count in %s", ErrInvalidMatrix, m)
	}
	if m.Positives() == 0 && m.Negatives() == 0 {
		return fmt.Errorf("%w: empty matrix", ErrInvalidMatrix)
	}
	return nil
}

// Positives is the number of actual positives (TP + FN).
func (m Matrix) Positives() int64 { return m.TP + m.FN }

// Negatives is the number of actual negatives (FP + TN).
func (m Matrix) Negatives() int64 { return m.FP + m.TN }

// Total is the number of labeled instances.
func (m Matrix) Total() int64 { return m.Positives() + m.Negatives() }

// Env binds the matrix counts to the base symbols for evaluation.
func (m Matrix) Env() expr.Env {
	return expr.Env{
		expr.TruePositives:  m.TP,
		expr.FalsePositives: m.FP,
		expr.FalseNegatives: m.FN,
		expr.TrueNegatives:  m.TN,
	}
}

// String renders the matrix as "TP=1 FP=0 FN=2 TN=3".
func (m Matrix) String() string {
	return fmt.Sprintf("TP=%d FP=%d FN=%d TN=%d", m.TP, m.FP, m.FN, m.TN)
}

// Parse reads "tp,fp,fn,tn" (the order used on the command line).
// The result is validated.
func Parse(s string) (Matrix, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Matrix{}, fmt.Errorf("%w: want tp,fp,fn,tn, got %q", ErrInvalidMatrix, s)
	}

	var counts [4]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return Matrix{}, fmt.Errorf("%w: count %d: %v", ErrInvalidMatrix, i+1, err)
		}
		counts[i] = n
	}

	m := Matrix{TP: counts[0], FP: counts[1], FN: counts[2], TN: counts[3]}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}
