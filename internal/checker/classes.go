package checker

import "context"

// Classes partitions names into groups of mutually equivalent metrics.
//
// Each name is compared against the first member of every existing group,
// so a catalog of n metrics with k classes costs at most n*k checks. Groups
// and their members keep the order of names.
func (c *Checker) Classes(ctx context.Context, names []string) ([][]string, error) {
	var classes [][]string
	for _, name := range names {
		if _, err := c.catalog.Expand(name); err != nil {
			return nil, err
		}
		placed := false
		for i, class := range classes {
			res, err := c.AreEquivalent(ctx, class[0], name)
			if err != nil {
				return nil, err
			}
			if res.Equivalent() {
				classes[i] = append(classes[i], name)
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, []string{name})
		}
	}
	return classes, nil
}
