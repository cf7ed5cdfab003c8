// Package expr provides the symbolic expression IR for metric formulas.
//
// Every metric is an expression over the four confusion-matrix symbols
// (A=true positives, B=false positives, C=false negatives, D=true negatives),
// exact rational constants, references to other metrics and the four
// arithmetic operators. Nothing else can be represented.
//
// This package imports nothing internal. Other packages build on it:
//   - registry stores and expands named expressions
//   - simplify normalizes them
//   - checker and sweep evaluate them
//
// Key design constraints:
//   - Expressions are immutable values; constructors copy rationals
//   - Constants are exact (math/big.Rat); floats appear only in EvalFloat
//   - Canonical JSON and formula IDs are stable across runs
package expr
