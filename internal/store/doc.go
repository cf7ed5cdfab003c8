// Package store persists sweep runs and equivalence checks in SQLite.
//
// Three tables:
//   - sweep_runs: one row per metric pair and bounds
//   - sweep_points: the included points of a run, in enumeration order
//   - comparisons: equivalence verdicts keyed by ComparisonID
//
// Ordering uses the seq column (a logical clock assigned inside the write
// transaction), never timestamps. Every list query ends with
// ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Open sets journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000 and
// foreign_keys=ON, so deleting a run cascades to its points. Schema
// upgrades are tracked with PRAGMA user_version.
//
// Comparison IDs and formula IDs come from internal/expr/hash.go.
package store
