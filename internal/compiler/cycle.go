package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle is a chain of metric references that returns to its start.
type Cycle struct {
	Path    []string `json:"path"` // ["F1", "Precision", "F1"]
	Message string   `json:"message"`
}

// FindCycles reports the reference cycles among specs, one per back edge
// found by a depth-first walk in declaration order. References to names
// outside specs are ignored.
func FindCycles(specs []MetricSpec) []Cycle {
	refs := make(map[string][]string, len(specs))
	for _, s := range specs {
		refs[s.Name] = nil
	}
	for _, s := range specs {
		for _, r := range s.Refs {
			if _, ok := refs[r]; ok {
				refs[s.Name] = append(refs[s.Name], r)
			}
		}
	}

	w := cycleWalk{refs: refs, state: make(map[string]visitState, len(specs))}
	for _, s := range specs {
		if w.state[s.Name] == unvisited {
			w.visit(s.Name)
		}
	}
	return w.cycles
}

type visitState uint8

const (
	unvisited visitState = iota
	onPath
	finished
)

type cycleWalk struct {
	refs   map[string][]string
	state  map[string]visitState
	path   []string
	cycles []Cycle
}

func (w *cycleWalk) visit(name string) {
	w.state[name] = onPath
	w.path = append(w.path, name)

	for _, next := range w.refs[name] {
		switch w.state[next] {
		case unvisited:
			w.visit(next)
		case onPath:
			w.cycles = append(w.cycles, newCycle(w.path, next))
		}
	}

	w.path = w.path[:len(w.path)-1]
	w.state[name] = finished
}

// newCycle cuts the current walk path at start and closes the loop.
func newCycle(path []string, start string) Cycle {
	i := slices.Index(path, start)
	loop := append(slices.Clone(path[i:]), start)
	if len(loop) == 2 {
		return Cycle{
			Path:    loop,
			Message: fmt.Sprintf("metric references itself: %s → %s", start, start),
		}
	}
	return Cycle{
		Path:    loop,
		Message: "reference cycle: " + strings.Join(loop, " → "),
	}
}
