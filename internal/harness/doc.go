// Package harness runs lineage scenarios: small YAML descriptions of a
// computation whose steps are registered through a real Engine, checked,
// and rendered.
//
// A scenario lists steps in registration order. Each step names the
// earlier steps it was derived from ("self" for an accumulator, a number
// for a literal constant). A step may hand its value to a channel
// (continue_to) and a later step may pick it up (from), which exercises
// the same bridge asynchronous code uses.
//
// Scenarios run against an internal-only engine with origin capture off;
// each step's origin is "scenario:<scenario>:<step>" so the rendered trails
// are deterministic and can be compared against golden files:
//
//	go test ./internal/harness -update
//
// The embedded default scenario is what `lineage demo` runs.
package harness
