package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/trail"
)

//go:embed scenarios/accumulator.yaml
var defaultScenario []byte

// SelfParent is the parent name a step uses to refer to itself.
const SelfParent = "self"

// Scenario describes a computation to register, check and render.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario shows.
	Description string `yaml:"description"`

	// Capacity is the ring capacity. Default: store.DefaultCapacity
	Capacity int `yaml:"capacity,omitempty"`

	// Steps are registered in order; ids follow the same order starting at 1.
	Steps []Step `yaml:"steps"`

	// Checks run after every step is registered.
	Checks []CheckStep `yaml:"checks,omitempty"`

	// Trails are rendered last.
	Trails []TrailStep `yaml:"trails,omitempty"`
}

// Step registers one value.
type Step struct {
	// Name is how later steps, checks and trails refer to this step.
	Name string `yaml:"name"`

	Label    string   `yaml:"label,omitempty"`
	Template string   `yaml:"template,omitempty"`
	Value    *float64 `yaml:"value"`

	// Parents lists earlier step names, "self", or numeric literals.
	Parents []string `yaml:"parents,omitempty"`

	// ContinueTo records this step as the tail of a channel.
	ContinueTo string `yaml:"continue_to,omitempty"`

	// From registers the step as the continuation of a channel instead of
	// from Parents and Template.
	From string `yaml:"from,omitempty"`
}

// CheckStep applies one invariant check to a step's value.
type CheckStep struct {
	Step  string `yaml:"step"`
	Check string `yaml:"check"`

	// Bound is the operand of is_gt, is_gte, is_lt and is_lte.
	Bound float64 `yaml:"bound,omitempty"`

	// Target and Epsilon are the operands of is_near.
	Target  float64 `yaml:"target,omitempty"`
	Epsilon float64 `yaml:"epsilon,omitempty"`

	// Expect is "pass" (default) or "fail".
	Expect string `yaml:"expect,omitempty"`
}

// TrailStep renders the lineage of a step.
type TrailStep struct {
	Step string `yaml:"step"`
	Mode string `yaml:"mode,omitempty"`
}

// Expectation values.
const (
	ExpectPass = "pass"
	ExpectFail = "fail"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is invalid.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// DefaultScenario returns the embedded demo scenario.
func DefaultScenario() (*Scenario, error) {
	return ParseScenario(defaultScenario)
}

// validateScenario checks names and references; it does not run anything.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	known := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if step.Name == SelfParent {
			return fmt.Errorf("steps[%d]: %q is reserved", i, SelfParent)
		}
		if known[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		if step.Value == nil {
			return fmt.Errorf("steps[%d] (%s): value is required", i, step.Name)
		}
		if step.From != "" && (len(step.Parents) > 0 || step.Template != "" || step.Label != "") {
			return fmt.Errorf("steps[%d] (%s): from cannot be combined with parents, template or label", i, step.Name)
		}
		if len(step.Parents) > record.MaxParents {
			return fmt.Errorf("steps[%d] (%s): %d parents exceeds maximum of %d", i, step.Name, len(step.Parents), record.MaxParents)
		}
		for _, p := range step.Parents {
			if p == SelfParent || known[p] {
				continue
			}
			if _, err := strconv.ParseFloat(p, 64); err != nil {
				return fmt.Errorf("steps[%d] (%s): unknown parent %q", i, step.Name, p)
			}
		}
		known[step.Name] = true
	}

	for i, c := range s.Checks {
		if !known[c.Step] {
			return fmt.Errorf("checks[%d]: unknown step %q", i, c.Step)
		}
		if _, ok := checkFuncs[engine.Check(c.Check)]; !ok {
			return fmt.Errorf("checks[%d]: unknown check %q", i, c.Check)
		}
		if c.Expect != "" && c.Expect != ExpectPass && c.Expect != ExpectFail {
			return fmt.Errorf("checks[%d]: expect must be %q or %q, got %q", i, ExpectPass, ExpectFail, c.Expect)
		}
	}

	for i, tr := range s.Trails {
		if !known[tr.Step] {
			return fmt.Errorf("trails[%d]: unknown step %q", i, tr.Step)
		}
		if _, err := trail.ParseMode(tr.Mode); tr.Mode != "" && err != nil {
			return fmt.Errorf("trails[%d]: %w", i, err)
		}
	}
	return nil
}
