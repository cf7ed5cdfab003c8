package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a named scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q does not exist", e.Path)
}

// ExpandScenarioPaths turns command-line arguments into scenario files.
// Files are kept as given; directories contribute their *.yaml and *.yml
// files (not recursive) in lexical order.
func ExpandScenarioPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: arg}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".yaml" || ext == ".yml" {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		slices.Sort(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
