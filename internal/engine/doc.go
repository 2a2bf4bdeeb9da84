// Package engine is the policy layer of the lineage auditor.
//
// The engine assigns ids, builds records, publishes them to a store
// backend and checks invariants on audited values. When a check fails it
// renders the lineage of the offending value and hands the result to the
// failure policy.
//
// POLICY:
//
// A Policy is chosen once, when the engine is built, and never changes:
//   - Backend None: Audit is a pass-through, no allocation, no locking
//   - Backend Internal: records go to the in-memory ring
//   - Backend External: records go to an external sink only
//   - Backend Dual (default): both
//   - Verbose: violations are logged and checks return nil; otherwise the
//     check returns a *ViolationError
//
// LINEAGE ACROSS BOUNDARIES:
//
// ContinueAuditTo and ContinueAuditFrom thread lineage through a Bridge so
// a value crossing a goroutine or queue boundary keeps its parent without
// the two sides sharing records.
//
// ERRORS:
//
// Failed checks produce *ViolationError. Registering more than
// record.MaxParents parents panics with *record.ArityError: it is a
// programming error and parents are never silently dropped. Missing
// lineage is never an error.
package engine
