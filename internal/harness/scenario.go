package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/confusion"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Metrics lists CUE metric files loaded on top of the standard catalog.
	// Paths are relative to the scenario file location.
	Metrics []string `yaml:"metrics,omitempty"`

	// Define adds metrics inline, in order, after Metrics.
	Define []Definition `yaml:"define,omitempty"`

	// WitnessBounds enables witness search for not_equivalent checks that
	// do not name a witness. Defaults to DefaultWitnessBounds.
	WitnessBounds *confusion.Bounds `yaml:"witness_bounds,omitempty"`

	Checks     []CheckStep `yaml:"checks,omitempty"`
	Sweeps     []SweepStep `yaml:"sweeps,omitempty"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultWitnessBounds is used when a scenario sets no witness_bounds.
var DefaultWitnessBounds = confusion.Bounds{MaxTotalTrue: 3, MaxTotalFalse: 3}

// Definition is an inline metric.
type Definition struct {
	Name        string `yaml:"name"`
	Formula     string `yaml:"formula"`
	Description string `yaml:"description,omitempty"`
}

// CheckStep runs AreEquivalent(A, B).
type CheckStep struct {
	A string `yaml:"a"`
	B string `yaml:"b"`

	// Expect is "equivalent" or "not_equivalent".
	Expect string `yaml:"expect"`

	// Witness evaluates the residual at this matrix instead of searching.
	Witness *confusion.Matrix `yaml:"witness,omitempty"`

	// Difference is the expected exact residual at Witness, e.g. "-1/2"
	// or "0.25". Requires Witness.
	Difference string `yaml:"difference,omitempty"`
}

// SweepStep runs a sweep of A against B.
type SweepStep struct {
	A      string           `yaml:"a"`
	B      string           `yaml:"b"`
	Bounds confusion.Bounds `yaml:"bounds"`
	Expect *SweepExpect     `yaml:"expect,omitempty"`
}

// SweepExpect lists optional expectations; nil fields are not checked.
type SweepExpect struct {
	Points     *int  `yaml:"points,omitempty"`
	Excluded   *int  `yaml:"excluded,omitempty"`
	Violations *int  `yaml:"violations,omitempty"`
	Divergent  *bool `yaml:"divergent,omitempty"`
	Functional *bool `yaml:"functional,omitempty"`
}

// Assertion validates results across steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "classes": Metrics partition into Classes
	// - "verdict_count": Count checks have Verdict
	// - "expansion": Metric expands to Formula
	Type string `yaml:"type"`

	Metrics []string   `yaml:"metrics,omitempty"`
	Classes [][]string `yaml:"classes,omitempty"`

	Verdict string `yaml:"verdict,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	Metric  string `yaml:"metric,omitempty"`
	Formula string `yaml:"formula,omitempty"`
}

// Assertion type constants.
const (
	AssertClasses      = "classes"
	AssertVerdictCount = "verdict_count"
	AssertExpansion    = "expansion"
)

// LoadScenario reads and parses a scenario YAML file, resolving metric
// paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving metric paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "check:" vs "checks:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Metrics {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Metrics[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Checks) == 0 && len(s.Sweeps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one of checks, sweeps or assertions is required")
	}

	for _, p := range s.Metrics {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("metric file not found: %s", p)
		}
	}

	for i, d := range s.Define {
		if d.Name == "" || d.Formula == "" {
			return fmt.Errorf("define[%d]: name and formula are required", i)
		}
	}

	if s.WitnessBounds != nil {
		if err := s.WitnessBounds.Validate(); err != nil {
			return fmt.Errorf("witness_bounds: %w", err)
		}
	}

	for i, c := range s.Checks {
		if c.A == "" || c.B == "" {
			return fmt.Errorf("checks[%d]: a and b are required", i)
		}
		switch checker.Verdict(c.Expect) {
		case checker.Equivalent, checker.NotEquivalent:
		default:
			return fmt.Errorf("checks[%d]: expect must be %q or %q, got %q",
				i, checker.Equivalent, checker.NotEquivalent, c.Expect)
		}
		if c.Witness != nil {
			if err := c.Witness.Validate(); err != nil {
				return fmt.Errorf("checks[%d].witness: %w", i, err)
			}
		}
		if c.Difference != "" && c.Witness == nil {
			return fmt.Errorf("checks[%d]: difference requires witness", i)
		}
	}

	for i, sw := range s.Sweeps {
		if sw.A == "" || sw.B == "" {
			return fmt.Errorf("sweeps[%d]: a and b are required", i)
		}
		if err := sw.Bounds.Validate(); err != nil {
			return fmt.Errorf("sweeps[%d].bounds: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertClasses:
		if len(a.Metrics) == 0 {
			return fmt.Errorf("assertions[%d]: metrics list is required for classes", index)
		}
		if len(a.Classes) == 0 {
			return fmt.Errorf("assertions[%d]: classes list is required for classes", index)
		}
	case AssertVerdictCount:
		switch checker.Verdict(a.Verdict) {
		case checker.Equivalent, checker.NotEquivalent:
		default:
			return fmt.Errorf("assertions[%d]: unknown verdict %q for verdict_count", index, a.Verdict)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for verdict_count", index)
		}
	case AssertExpansion:
		if a.Metric == "" || a.Formula == "" {
			return fmt.Errorf("assertions[%d]: metric and formula are required for expansion", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
