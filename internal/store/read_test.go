package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/expr"
)

func TestReadSweepRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSweepRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSweepRun() error = %v, want ErrNotFound", err)
	}
}

func TestReadSweepPoints_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSweepPoints(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSweepPoints() error = %v, want ErrNotFound", err)
	}
}

func TestListSweepRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListSweepRuns(context.Background())
	if err != nil {
		t.Fatalf("ListSweepRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("ListSweepRuns() returned nil, want empty slice")
	}
}

func TestListSweepRuns_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// IDs that sort opposite to write order: seq must win.
	for _, id := range []string{"c", "b", "a"} {
		in := createTestRun()
		in.ID = id
		if _, err := s.WriteSweep(ctx, in, testPoints(1)); err != nil {
			t.Fatalf("WriteSweep(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListSweepRuns(ctx)
	if err != nil {
		t.Fatalf("ListSweepRuns() failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Errorf("run order = %v, want [c b a]", ids)
	}
}

func TestDeleteSweepRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run, err := s.WriteSweep(ctx, createTestRun(), testPoints(3))
	if err != nil {
		t.Fatalf("WriteSweep() failed: %v", err)
	}

	if err := s.DeleteSweepRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteSweepRun() failed: %v", err)
	}
	if _, err := s.ReadSweepPoints(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSweepPoints() after delete error = %v, want ErrNotFound", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sweep_points`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("sweep_points = %d after delete, want 0", count)
	}

	if err := s.DeleteSweepRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteSweepRun() error = %v, want ErrNotFound", err)
	}
}

func TestReadComparison_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadComparison(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadComparison() error = %v, want ErrNotFound", err)
	}
}

func TestReadComparisonsFor(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pairs := [][2]string{
		{"Precision", "PPV"},
		{"Recall", "TPR"},
		{"Precision", "PPV"},
	}
	for i, p := range pairs {
		res := &checker.Result{MetricA: p[0], MetricB: p[1], Verdict: checker.Equivalent, Residual: expr.Int(0)}
		// Distinct formulas per write so the IDs differ.
		f := expr.Sum(expr.S(expr.TruePositives), expr.Int(int64(i)))
		c, err := NewComparison(res, f, f)
		if err != nil {
			t.Fatalf("NewComparison() failed: %v", err)
		}
		if _, err := s.WriteComparison(ctx, c); err != nil {
			t.Fatalf("WriteComparison() failed: %v", err)
		}
	}

	got, err := s.ReadComparisonsFor(ctx, "Precision", "PPV")
	if err != nil {
		t.Fatalf("ReadComparisonsFor() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("comparisons = %d, want 2", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 3 {
		t.Errorf("seqs = %d, %d, want 1, 3", got[0].Seq, got[1].Seq)
	}

	none, err := s.ReadComparisonsFor(ctx, "PPV", "Precision")
	if err != nil {
		t.Fatalf("ReadComparisonsFor() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("reversed pair matched %d comparisons, want 0", len(none))
	}
}

func TestReadComparisons_CorruptWitness(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO comparisons (id, metric_a, metric_b, formula_a, formula_b, verdict, residual, witness, seq)
		VALUES ('c1', 'Precision', 'Recall', 'fa', 'fb', 'not_equivalent', 'A - C', '{"matrix":{},"value":"x"}', 1)
	`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.ReadComparisons(context.Background()); err == nil {
		t.Error("expected error for unparseable witness value")
	}
}
