// Package testutil holds deterministic helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/roach88/metricalg/internal/catalog"
	"github.com/roach88/metricalg/internal/registry"
)

// StandardRegistry returns a fresh registry holding the standard catalog.
// Each call returns an independent registry, so tests may define extra
// metrics without affecting each other.
func StandardRegistry(t testing.TB) *registry.Registry {
	t.Helper()
	reg, err := catalog.Standard()
	if err != nil {
		t.Fatalf("load standard catalog: %v", err)
	}
	return reg
}
