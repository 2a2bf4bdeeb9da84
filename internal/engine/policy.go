package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Backend selects where registrations go.
type Backend int

const (
	// Dual registers in memory and externally. It is the zero value so an
	// unconfigured policy behaves like the default.
	Dual Backend = iota
	// None makes Audit a pass-through with no registration cost.
	None
	// Internal registers in the in-memory ring only.
	Internal
	// External hands every registration to an external sink only.
	External
)

var backendNames = [...]string{
	Dual:     "dual",
	None:     "none",
	Internal: "internal",
	External: "external",
}

// String returns the backend name.
func (b Backend) String() string {
	if b < 0 || int(b) >= len(backendNames) {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendNames[b]
}

// ParseBackend parses a backend name. The empty string selects Dual.
func ParseBackend(s string) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Dual, nil
	}
	for b, n := range backendNames {
		if n == name {
			return Backend(b), nil
		}
	}
	return Dual, fmt.Errorf("unknown policy %q (want none, internal, external or dual)", s)
}

// Policy is the configuration the engine is built with. It is fixed for
// the engine's lifetime.
type Policy struct {
	Backend Backend

	// Verbose makes violations advisory: the trail is rendered and logged
	// but checks return nil.
	Verbose bool
}

// String formats the policy as "backend" or "backend+verbose".
func (p Policy) String() string {
	if p.Verbose {
		return p.Backend.String() + "+verbose"
	}
	return p.Backend.String()
}

// failureHandler decides what a violation does after its trail is
// rendered.
type failureHandler interface {
	name() string
	handle(logger *zap.Logger, v *ViolationError) error
}

// fatal returns the violation to the caller.
type fatal struct{}

func (fatal) name() string { return "fatal" }

func (fatal) handle(logger *zap.Logger, v *ViolationError) error {
	logger.Error("invariant violated", violationFields(v)...)
	return v
}

// advisory logs the violation and lets execution continue.
type advisory struct{}

func (advisory) name() string { return "advisory" }

func (advisory) handle(logger *zap.Logger, v *ViolationError) error {
	logger.Warn("invariant violated", violationFields(v)...)
	return nil
}

func failureFor(p Policy) failureHandler {
	if p.Verbose {
		return advisory{}
	}
	return fatal{}
}

func violationFields(v *ViolationError) []zap.Field {
	fields := []zap.Field{
		zap.String("check", string(v.Check)),
		zap.Int64("id", int64(v.ID)),
		zap.Float64("value", v.Value),
	}
	if v.Trail != "" {
		fields = append(fields, zap.String("trail", v.Trail))
	}
	return fields
}
