package confusion

import (
	"fmt"
	"iter"
)

// Bounds limits the class totals of an enumeration.
type Bounds struct {
	MaxTotalTrue  int `json:"max_total_true" yaml:"max_total_true"`
	MaxTotalFalse int `json:"max_total_false" yaml:"max_total_false"`
}

// Validate requires both bounds to be at least 1.
func (b Bounds) Validate() error {
	if b.MaxTotalTrue < 1 || b.MaxTotalFalse < 1 {
		return fmt.Errorf("%w: bounds must be >= 1, got true=%d false=%d",
			ErrInvalidMatrix, b.MaxTotalTrue, b.MaxTotalFalse)
	}
	return nil
}

// Candidates returns how many matrices Enumerate yields.
// Each (TotalTrue, TotalFalse) pair contributes (TotalTrue+1)*(TotalFalse+1).
func (b Bounds) Candidates() int {
	if b.Validate() != nil {
		return 0
	}
	return triangular(b.MaxTotalTrue) * triangular(b.MaxTotalFalse)
}

// triangular returns 2 + 3 + ... + (n+1).
func triangular(n int) int {
	return n * (n + 3) / 2
}

// Enumerate yields every matrix with 1 <= TP+FN <= MaxTotalTrue and
// 1 <= FP+TN <= MaxTotalFalse.
//
// Order is fixed: TotalTrue outermost, then TotalFalse, then TP, then TN,
// each ascending. FN and FP are derived, so all counts are non-negative.
// The sequence is finite and restartable; invalid bounds yield nothing.
func Enumerate(b Bounds) iter.Seq[Matrix] {
	return func(yield func(Matrix) bool) {
		if b.Validate() != nil {
			return
		}
		for totalTrue := int64(1); totalTrue <= int64(b.MaxTotalTrue); totalTrue++ {
			for totalFalse := int64(1); totalFalse <= int64(b.MaxTotalFalse); totalFalse++ {
				for tp := int64(0); tp <= totalTrue; tp++ {
					for tn := int64(0); tn <= totalFalse; tn++ {
						m := Matrix{
							TP: tp,
							FP: totalFalse - tn,
							FN: totalTrue - tp,
							TN: tn,
						}
						if !yield(m) {
							return
						}
					}
				}
			}
		}
	}
}
