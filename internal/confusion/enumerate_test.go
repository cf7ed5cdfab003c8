package confusion

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateOrder(t *testing.T) {
	got := slices.Collect(Enumerate(Bounds{MaxTotalTrue: 1, MaxTotalFalse: 2}))

	want := []Matrix{
		// TotalTrue=1, TotalFalse=1
		{TP: 0, FP: 1, FN: 1, TN: 0},
		{TP: 0, FP: 0, FN: 1, TN: 1},
		{TP: 1, FP: 1, FN: 0, TN: 0},
		{TP: 1, FP: 0, FN: 0, TN: 1},
		// TotalTrue=1, TotalFalse=2
		{TP: 0, FP: 2, FN: 1, TN: 0},
		{TP: 0, FP: 1, FN: 1, TN: 1},
		{TP: 0, FP: 0, FN: 1, TN: 2},
		{TP: 1, FP: 2, FN: 0, TN: 0},
		{TP: 1, FP: 1, FN: 0, TN: 1},
		{TP: 1, FP: 0, FN: 0, TN: 2},
	}
	assert.Equal(t, want, got)
}

func TestEnumerateCount(t *testing.T) {
	b := Bounds{MaxTotalTrue: 5, MaxTotalFalse: 5}

	n := 0
	for m := range Enumerate(b) {
		require.NoError(t, m.Validate())
		n++
	}

	// (2+3+4+5+6)^2
	assert.Equal(t, 400, n)
	assert.Equal(t, 400, b.Candidates())
}

func TestEnumerateRestartable(t *testing.T) {
	seq := Enumerate(Bounds{MaxTotalTrue: 3, MaxTotalFalse: 2})

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
}

func TestEnumerateEarlyStop(t *testing.T) {
	var got []Matrix
	for m := range Enumerate(Bounds{MaxTotalTrue: 5, MaxTotalFalse: 5}) {
		got = append(got, m)
		if len(got) == 3 {
			break
		}
	}
	assert.Len(t, got, 3)
}

func TestEnumerateInvalidBounds(t *testing.T) {
	for _, b := range []Bounds{{0, 5}, {5, 0}, {-1, -1}} {
		assert.ErrorIs(t, b.Validate(), ErrInvalidMatrix)
		assert.Empty(t, slices.Collect(Enumerate(b)))
		assert.Zero(t, b.Candidates())
	}
}
