package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/record"
)

// StepResult is a registered step.
type StepResult struct {
	Name  string    `json:"name"`
	ID    record.ID `json:"id"`
	Value float64   `json:"value"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Step     string `json:"step"`
	Check    string `json:"check"`
	Passed   bool   `json:"passed"`
	Expected bool   `json:"expected_pass"`
	Message  string `json:"message,omitempty"`
	Trail    string `json:"trail,omitempty"`
}

// Matched reports whether the outcome was the expected one.
func (c CheckResult) Matched() bool {
	return c.Passed == c.Expected
}

// TrailResult is one rendered trail.
type TrailResult struct {
	Step string `json:"step"`
	Mode string `json:"mode"`
	Text string `json:"text"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true when every check behaved as expected and every trail
	// rendered.
	Pass bool `json:"pass"`

	Steps  []StepResult  `json:"steps"`
	Checks []CheckResult `json:"checks"`
	Trails []TrailResult `json:"trails"`

	// Errors contains one message per unmet expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Steps:    []StepResult{},
		Checks:   []CheckResult{},
		Trails:   []TrailResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCheck records a check outcome, failing the result on a mismatch.
func (r *Result) AddCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if c.Matched() {
		return
	}
	if c.Expected {
		r.AddError(fmt.Sprintf("check %s on %s: expected pass, got %s", c.Check, c.Step, c.Message))
	} else {
		r.AddError(fmt.Sprintf("check %s on %s: expected fail, got pass", c.Check, c.Step))
	}
}

// Report renders the result as plain text: steps, check outcomes and
// trails, in that order.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Scenario)

	b.WriteString("\nsteps:\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %d %s = %s\n", s.ID, s.Name, record.FormatValue(s.Value))
	}

	if len(r.Checks) > 0 {
		b.WriteString("\nchecks:\n")
		for _, c := range r.Checks {
			outcome := "pass"
			if !c.Passed {
				outcome = "fail (" + c.Message + ")"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", c.Step, c.Check, outcome)
		}
	}

	for _, tr := range r.Trails {
		fmt.Fprintf(&b, "\ntrail %s (%s):\n%s", tr.Step, tr.Mode, tr.Text)
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nerrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return b.String()
}
