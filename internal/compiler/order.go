package compiler

import (
	"fmt"
	"slices"
)

// Order sorts specs so every referenced metric precedes its users.
//
// known reports names already defined outside specs, such as the standard
// catalog when a user directory is layered on top. Declaration order is
// kept wherever references allow. Unknown references, redefinitions of
// known names and reference cycles are all reported; when any is found the
// returned slice is nil.
func Order(specs []MetricSpec, known func(name string) bool) ([]MetricSpec, []ValidationError) {
	if known == nil {
		known = func(string) bool { return false }
	}

	var errs []ValidationError
	local := make(map[string]bool, len(specs))
	for _, s := range specs {
		if known(s.Name) || local[s.Name] {
			errs = append(errs, ValidationError{
				Field:   "metric." + s.Name,
				Message: fmt.Sprintf("metric %q is already defined", s.Name),
				Code:    ErrDuplicateName,
				Line:    lineOf(s),
			})
		}
		local[s.Name] = true
	}

	for _, s := range specs {
		for _, ref := range s.Refs {
			if !local[ref] && !known(ref) {
				errs = append(errs, ValidationError{
					Field:   "metric." + s.Name + ".formula",
					Message: fmt.Sprintf("unknown metric %q", ref),
					Code:    ErrUnknownReference,
					Line:    lineOf(s),
				})
			}
		}
	}

	for _, c := range FindCycles(specs) {
		errs = append(errs, ValidationError{
			Field:   "metric." + c.Path[0] + ".formula",
			Message: c.Message,
			Code:    ErrReferenceCycle,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// Repeatedly emit the first pending spec whose local references are
	// all emitted. The graph is acyclic here, so each pass emits one.
	ordered := make([]MetricSpec, 0, len(specs))
	emitted := make(map[string]bool, len(specs))
	pending := slices.Clone(specs)
	for len(pending) > 0 {
		for i, s := range pending {
			ready := true
			for _, ref := range s.Refs {
				if local[ref] && !emitted[ref] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, s)
				emitted[s.Name] = true
				pending = slices.Delete(pending, i, i+1)
				break
			}
		}
	}
	return ordered, nil
}

func lineOf(s MetricSpec) int {
	if s.Pos.IsValid() {
		return s.Pos.Line()
	}
	return 0
}
