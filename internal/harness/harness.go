package harness

import (
	"bytes"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/trail"
)

type checkFunc func(e *engine.Engine, n record.Ref, c CheckStep) error

var checkFuncs = map[engine.Check]checkFunc{
	engine.CheckFinite:         func(e *engine.Engine, n record.Ref, _ CheckStep) error { return e.IsFinite(n) },
	engine.CheckPositive:       func(e *engine.Engine, n record.Ref, _ CheckStep) error { return e.IsPositive(n) },
	engine.CheckNotZero:        func(e *engine.Engine, n record.Ref, _ CheckStep) error { return e.IsNotZero(n) },
	engine.CheckGT:             func(e *engine.Engine, n record.Ref, c CheckStep) error { return e.IsGT(n, c.Bound) },
	engine.CheckGTE:            func(e *engine.Engine, n record.Ref, c CheckStep) error { return e.IsGTE(n, c.Bound) },
	engine.CheckLT:             func(e *engine.Engine, n record.Ref, c CheckStep) error { return e.IsLT(n, c.Bound) },
	engine.CheckLTE:            func(e *engine.Engine, n record.Ref, c CheckStep) error { return e.IsLTE(n, c.Bound) },
	engine.CheckNear:           func(e *engine.Engine, n record.Ref, c CheckStep) error { return e.IsNear(n, c.Target, c.Epsilon) },
	engine.CheckPositiveRadian: func(e *engine.Engine, n record.Ref, _ CheckStep) error { return e.IsPositiveRadian(n) },
	engine.CheckTightRadian:    func(e *engine.Engine, n record.Ref, _ CheckStep) error { return e.IsTightRadian(n) },
}

// Harness executes one scenario against a fresh engine.
type Harness struct {
	scenario *Scenario
	engine   *engine.Engine
	refs     map[string]record.Ref
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zap.NewNop())
}

// RunWithLogger executes a scenario in a fresh internal-only engine.
// Violations are fatal so every check outcome is observable.
func RunWithLogger(scenario *Scenario, logger *zap.Logger) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	capacity := scenario.Capacity
	if capacity <= 0 {
		capacity = store.DefaultCapacity
	}

	var violations bytes.Buffer
	eng := engine.New(
		engine.WithPolicy(engine.Policy{Backend: engine.Internal}),
		engine.WithCapacity(capacity),
		engine.WithOriginCapture(false),
		engine.WithOutput(&violations),
		engine.WithLogger(logger),
	)
	defer eng.Close()

	return RunWithEngine(scenario, eng, logger)
}

// RunWithEngine executes a scenario against an engine the caller built
// and still owns. Scenario capacity is ignored. Under a verbose policy
// checks never fail and under the none policy no trail renders; both show
// up as unmet expectations.
//
// Execution flow:
//  1. Register steps in order
//  2. Run checks, comparing each outcome with its expectation
//  3. Render trails
//
// An error is returned only when the scenario cannot be executed.
func RunWithEngine(scenario *Scenario, eng *engine.Engine, logger *zap.Logger) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		engine:   eng,
		refs:     make(map[string]record.Ref, len(scenario.Steps)),
	}

	result := NewResult(scenario.Name)
	for _, step := range scenario.Steps {
		n, err := h.register(step)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		result.Steps = append(result.Steps, StepResult{Name: step.Name, ID: n.ID, Value: n.Value})
	}

	for _, c := range scenario.Checks {
		result.AddCheck(h.check(c))
	}

	for _, tr := range scenario.Trails {
		mode := trail.Table
		if tr.Mode != "" {
			mode, _ = trail.ParseMode(tr.Mode)
		}
		text, ok := eng.Render(h.refs[tr.Step].ID, mode)
		if !ok {
			result.AddError(fmt.Sprintf("trail %s (%s): nothing to render", tr.Step, mode))
			continue
		}
		result.Trails = append(result.Trails, TrailResult{Step: tr.Step, Mode: mode.String(), Text: text})
	}

	logger.Debug("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.String("policy", eng.Policy().String()),
		zap.Bool("pass", result.Pass),
		zap.Int("steps", len(result.Steps)))
	return result, nil
}

func (h *Harness) register(step Step) (record.Ref, error) {
	v := *step.Value
	if step.From != "" {
		n := h.engine.ContinueAuditFrom(step.From, v)
		h.refs[step.Name] = n
		h.continueTo(step, n)
		return n, nil
	}

	parents := make([]record.Ref, 0, len(step.Parents))
	for _, p := range step.Parents {
		ref, err := h.parent(p)
		if err != nil {
			return record.Ref{}, err
		}
		parents = append(parents, ref)
	}

	at := "scenario:" + h.scenario.Name + ":" + step.Name
	n := h.engine.AuditAt(at, v, step.Label, step.Template, parents...)
	h.refs[step.Name] = n
	h.continueTo(step, n)
	return n, nil
}

func (h *Harness) continueTo(step Step, n record.Ref) {
	if step.ContinueTo != "" {
		h.engine.ContinueAuditTo(step.ContinueTo, n)
	}
}

func (h *Harness) parent(name string) (record.Ref, error) {
	if name == SelfParent {
		return record.Self, nil
	}
	if ref, ok := h.refs[name]; ok {
		return ref, nil
	}
	v, err := strconv.ParseFloat(name, 64)
	if err != nil {
		return record.Ref{}, fmt.Errorf("unknown parent %q", name)
	}
	return record.Literal(v), nil
}

func (h *Harness) check(c CheckStep) CheckResult {
	expect := c.Expect
	if expect == "" {
		expect = ExpectPass
	}
	err := checkFuncs[engine.Check(c.Check)](h.engine, h.refs[c.Step], c)
	res := CheckResult{
		Step:     c.Step,
		Check:    c.Check,
		Passed:   err == nil,
		Expected: expect == ExpectPass,
	}
	if ve, ok := engine.AsViolation(err); ok {
		res.Message = ve.Error()
		res.Trail = ve.Trail
	}
	return res
}
