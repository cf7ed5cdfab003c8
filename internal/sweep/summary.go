package sweep

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/metricalg/internal/confusion"
)

// Summary describes a completed sweep.
type Summary struct {
	MetricA string `json:"metric_a"`
	MetricB string `json:"metric_b"`

	Candidates int `json:"candidates"`
	Points     int `json:"points"`
	Excluded   int `json:"excluded"`

	MinA float64 `json:"min_a"`
	MaxA float64 `json:"max_a"`
	MinB float64 `json:"min_b"`
	MaxB float64 `json:"max_b"`

	// Correlation is Pearson's r between the two metrics. Nil when fewer
	// than two points exist or either metric is constant.
	Correlation *float64 `json:"correlation,omitempty"`

	// DistinctA and DistinctB count values that differ by more than
	// Tolerance (relative for magnitudes above 1).
	DistinctA int `json:"distinct_a"`
	DistinctB int `json:"distinct_b"`

	// Functional is true when equal values of B always come with equal
	// values of A, i.e. A can be computed from B on this grid.
	Functional bool `json:"functional"`
}

// Tolerance bounds the difference between metric values treated as equal:
// absolute below magnitude 1, relative above it.
const Tolerance = 1e-9

// Summarize consumes points and reports counts and statistics.
func Summarize(metricA, metricB string, b confusion.Bounds, points iter.Seq[Point]) Summary {
	s := Summary{
		MetricA:    metricA,
		MetricB:    metricB,
		Candidates: b.Candidates(),
		Functional: true,
	}

	var xs, ys []float64
	distinctA := make(map[float64]bool)
	firstAForB := make(map[float64]float64)
	for p := range points {
		xs = append(xs, p.A)
		ys = append(ys, p.B)

		distinctA[bucket(p.A)] = true
		kb := bucket(p.B)
		if a, ok := firstAForB[kb]; ok {
			if !approxEqual(a, p.A) {
				s.Functional = false
			}
		} else {
			firstAForB[kb] = p.A
		}
	}

	s.Points = len(xs)
	s.Excluded = s.Candidates - s.Points
	s.DistinctA = len(distinctA)
	s.DistinctB = len(firstAForB)

	if s.Points == 0 {
		return s
	}
	s.MinA, s.MaxA = floats.Min(xs), floats.Max(xs)
	s.MinB, s.MaxB = floats.Min(ys), floats.Max(ys)
	if s.Points > 1 && s.MinA != s.MaxA && s.MinB != s.MaxB {
		r := stat.Correlation(xs, ys, nil)
		s.Correlation = &r
	}
	return s
}

// Violations returns the points where metric A is at most zero while
// metric B is above one half.
//
// For a sweep of F1 against BalancedAccuracy this must be empty: a
// classifier better than chance on balanced accuracy always finds at least
// one true positive.
func Violations(points iter.Seq[Point]) []Point {
	var out []Point
	for p := range points {
		if p.A <= 0 && p.B > 0.5 {
			out = append(out, p)
		}
	}
	return out
}

// Divergence is a pair of points that agree on metric B but not on metric A.
type Divergence struct {
	First  Point `json:"first"`
	Second Point `json:"second"`
}

// FindDivergence returns the first pair of points, in sweep order, with
// equal B values and different A values.
func FindDivergence(points iter.Seq[Point]) (Divergence, bool) {
	seen := make(map[float64]Point)
	for p := range points {
		k := bucket(p.B)
		first, ok := seen[k]
		if !ok {
			seen[k] = p
			continue
		}
		if !approxEqual(first.A, p.A) {
			return Divergence{First: first, Second: p}, true
		}
	}
	return Divergence{}, false
}

// bucket maps v to a map key shared by values within Tolerance of it,
// except near bucket edges. Magnitudes of 1 and above keep about 30
// significant bits.
func bucket(v float64) float64 {
	if math.Abs(v) < 1 {
		return math.Round(v/Tolerance) * Tolerance
	}
	frac, exp := math.Frexp(v)
	return math.Ldexp(math.Round(math.Ldexp(frac, 30)), exp-30)
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance*max(1, math.Abs(a), math.Abs(b))
}
