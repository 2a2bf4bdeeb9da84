package store

import "github.com/roach88/lineage/internal/record"

// Reader looks up published records. Get reports false for ids that were
// never registered or have since been evicted; that is steady-state
// behavior, not an error.
type Reader interface {
	Get(id record.ID) (*record.Record, bool)
}

// Backend is where the engine registers records.
//
// Allocate returns a fresh id. Put publishes a fully built record; the
// caller must not touch it afterwards. Close releases any resources held by
// the backend and flushes pending deliveries.
type Backend interface {
	Reader
	Allocate() record.ID
	Put(r *record.Record)
	Close() error
}
