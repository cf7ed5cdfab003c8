// Package harness runs metric conformance scenarios.
//
// A scenario loads the standard catalog (plus optional CUE metric files and
// inline definitions), runs equivalence checks and sweeps with expected
// outcomes, and evaluates assertions over the results.
//
// # Scenario Format
//
//	name: precision_family
//	description: "Precision synonyms agree; Precision and Specificity differ"
//	metrics:
//	  - extra.cue
//	define:
//	  - name: Markedness
//	    formula: "PPV + NPV - 1"
//	witness_bounds: { max_total_true: 2, max_total_false: 2 }
//	checks:
//	  - a: Precision
//	    b: PPV
//	    expect: equivalent
//	  - a: Precision
//	    b: Specificity
//	    expect: not_equivalent
//	    witness: { tp: 0, fp: 1, fn: 0, tn: 1 }
//	    difference: "-1/2"
//	sweeps:
//	  - a: F1
//	    b: BalancedAccuracy
//	    bounds: { max_total_true: 5, max_total_false: 5 }
//	    expect: { violations: 0, divergent: true }
//	assertions:
//	  - type: classes
//	    metrics: [Precision, PPV, Recall]
//	    classes: [[Precision, PPV], [Recall]]
//
// Metric file paths are relative to the scenario file.
//
// # Assertion Types
//
//   - classes: partition of the listed metrics into equivalence classes
//   - verdict_count: number of checks with the given verdict
//   - expansion: fully expanded formula of a metric, as printed
//
// # Deterministic Testing
//
// Sweeps are persisted to an in-memory store with sequential run IDs
// (testutil.SequenceIDGenerator), trace events are numbered in execution
// order, and snapshots use canonical JSON, so the same scenario always
// produces byte-identical golden output.
package harness
