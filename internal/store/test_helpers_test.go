package store

import (
	"iter"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/sweep"
	"github.com/roach88/metricalg/internal/testutil"
)

// createTestStore opens a store in a temp directory with sequential run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun returns a run for Precision vs Recall at 1x1 bounds with
// placeholder formula IDs.
func createTestRun() SweepRun {
	b := confusion.Bounds{MaxTotalTrue: 1, MaxTotalFalse: 1}
	return SweepRun{
		MetricA:    "Precision",
		MetricB:    "Recall",
		FormulaA:   "formula-a",
		FormulaB:   "formula-b",
		Bounds:     b,
		Candidates: b.Candidates(),
	}
}

// testPoints returns n points with distinct matrices and values.
func testPoints(n int) iter.Seq[sweep.Point] {
	points := make([]sweep.Point, n)
	for i := range points {
		points[i] = sweep.Point{
			A:      float64(i) / 4,
			B:      1 - float64(i)/4,
			Matrix: confusion.Matrix{TP: int64(i), FP: 1, FN: 0, TN: int64(n - i)},
		}
	}
	return slices.Values(points)
}
