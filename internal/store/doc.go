// Package store holds published lineage records.
//
// The primary backend is Ring, a fixed-capacity table indexed by id modulo
// capacity. Memory is bounded and lossy: registering a new record silently
// evicts whatever older record shared its slot, and a later lookup of the
// evicted id reports missing instead of failing.
//
// # Backends
//
//   - Ring: in-memory, lock-free, overwrite on wrap
//   - External: forwards every record to a Publisher and keeps nothing
//   - Dual: fans out to two backends (in-memory plus external by default)
//   - Snapshot: read-only map rebuilt from an external log
//
// # Concurrency
//
// Id allocation is a single atomic add (Clock). Publication is a single
// atomic pointer store per slot. A reader racing an eviction sees either the
// complete old record or a mismatched id, never a partial record.
package store
