package engine

import (
	"math"

	"github.com/roach88/lineage/internal/metrics"
	"github.com/roach88/lineage/internal/record"
)

// Every check returns nil when the invariant holds. NaN fails all of them.
// On failure the lineage is rendered in the failure mode; the policy then
// decides whether the *ViolationError is returned (fatal) or only logged
// (verbose). Under the None backend nothing is checked.

// IsFinite rejects NaN and both infinities.
func (e *Engine) IsFinite(n record.Ref) error {
	if e.backend == nil || (!math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)) {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckFinite, ID: n.ID, Value: n.Value})
}

// IsPositive requires n > 0.
func (e *Engine) IsPositive(n record.Ref) error {
	if e.backend == nil || n.Value > 0 {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckPositive, ID: n.ID, Value: n.Value})
}

// IsNotZero requires n != 0.
func (e *Engine) IsNotZero(n record.Ref) error {
	if e.backend == nil || n.Value < 0 || n.Value > 0 {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckNotZero, ID: n.ID, Value: n.Value})
}

// IsGT requires n > bound.
func (e *Engine) IsGT(n record.Ref, bound float64) error {
	if e.backend == nil || n.Value > bound {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckGT, ID: n.ID, Value: n.Value, Bound: bound})
}

// IsGTE requires n >= bound.
func (e *Engine) IsGTE(n record.Ref, bound float64) error {
	if e.backend == nil || n.Value >= bound {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckGTE, ID: n.ID, Value: n.Value, Bound: bound})
}

// IsLT requires n < bound.
func (e *Engine) IsLT(n record.Ref, bound float64) error {
	if e.backend == nil || n.Value < bound {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckLT, ID: n.ID, Value: n.Value, Bound: bound})
}

// IsLTE requires n <= bound.
func (e *Engine) IsLTE(n record.Ref, bound float64) error {
	if e.backend == nil || n.Value <= bound {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckLTE, ID: n.ID, Value: n.Value, Bound: bound})
}

// IsNear requires |n - target| <= epsilon.
func (e *Engine) IsNear(n record.Ref, target, epsilon float64) error {
	if e.backend == nil || math.Abs(n.Value-target) <= epsilon {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckNear, ID: n.ID, Value: n.Value, Bound: target, Epsilon: epsilon})
}

// IsPositiveRadian requires n in [0, 2π).
func (e *Engine) IsPositiveRadian(n record.Ref) error {
	if e.backend == nil || (n.Value >= 0 && n.Value < 2*math.Pi) {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckPositiveRadian, ID: n.ID, Value: n.Value})
}

// IsTightRadian requires n in [-π, π].
func (e *Engine) IsTightRadian(n record.Ref) error {
	if e.backend == nil || (n.Value >= -math.Pi && n.Value <= math.Pi) {
		return nil
	}
	return e.violate(&ViolationError{Check: CheckTightRadian, ID: n.ID, Value: n.Value})
}

func (e *Engine) violate(v *ViolationError) error {
	metrics.Violations.WithLabelValues(string(v.Check), e.failure.name()).Inc()
	if v.ID != record.NoID {
		if text, ok := e.Render(v.ID, e.mode); ok {
			v.Trail = text
		}
	}
	e.write(v.Error() + "\n" + v.Trail)
	return e.failure.handle(e.logger, v)
}
