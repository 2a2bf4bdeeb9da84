package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/lineage/internal/record"
)

// Check names an invariant check.
type Check string

const (
	CheckFinite         Check = "is_finite"
	CheckPositive       Check = "is_positive"
	CheckNotZero        Check = "is_not_zero"
	CheckGT             Check = "is_gt"
	CheckGTE            Check = "is_gte"
	CheckLT             Check = "is_lt"
	CheckLTE            Check = "is_lte"
	CheckNear           Check = "is_near"
	CheckPositiveRadian Check = "is_positive_radian"
	CheckTightRadian    Check = "is_tight_radian"
)

// ViolationError reports a failed invariant check.
//
// ViolationError includes the rendered lineage of the offending value so
// the caller can report it without access to the engine.
type ViolationError struct {
	// Check identifies the failed invariant.
	Check Check

	// ID is the id the value was registered under, or record.NoID when
	// registration is disabled.
	ID record.ID

	// Value is the offending value.
	Value float64

	// Bound is the comparison operand: the bound for ordering checks and
	// the target for IsNear.
	Bound float64

	// Epsilon is the tolerance for IsNear.
	Epsilon float64

	// Trail is the rendered lineage, empty when none was available.
	Trail string
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s violated: value %s", e.Check, record.FormatValue(e.Value))
	if e.ID != record.NoID {
		fmt.Fprintf(&b, " (id %d)", e.ID)
	}
	switch e.Check {
	case CheckGT, CheckGTE, CheckLT, CheckLTE:
		fmt.Fprintf(&b, ", bound %s", record.FormatValue(e.Bound))
	case CheckNear:
		fmt.Fprintf(&b, ", target %s, epsilon %s", record.FormatValue(e.Bound), record.FormatValue(e.Epsilon))
	}
	return b.String()
}

// IsViolation returns true if err is, or wraps, a *ViolationError.
// Uses errors.As to handle wrapped errors.
func IsViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}

// AsViolation extracts the *ViolationError from err.
func AsViolation(err error) (*ViolationError, bool) {
	var ve *ViolationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
