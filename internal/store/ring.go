package store

import (
	"sync/atomic"

	"github.com/roach88/lineage/internal/metrics"
	"github.com/roach88/lineage/internal/record"
)

// DefaultCapacity is the slot count used when none is configured.
const DefaultCapacity = 1 << 16

// Ring is the fixed-capacity in-memory record store.
//
// Record id n lives in slot n mod capacity. A newer id mapping to the same
// slot silently replaces the older record; lookups for the older id then
// report missing because the occupant's id no longer matches.
//
// Thread-safety: all methods are safe for concurrent use. Put publishes with
// a single atomic pointer store, so readers see either the previous
// occupant or the complete new record.
type Ring struct {
	clock *Clock
	slots []atomic.Pointer[record.Record]
}

// NewRing creates a ring with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	return NewRingWithClock(capacity, NewClock())
}

// NewRingWithClock creates a ring that allocates ids from clock.
func NewRingWithClock(capacity int, clock *Clock) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		clock: clock,
		slots: make([]atomic.Pointer[record.Record], capacity),
	}
}

// Capacity returns the number of slots.
func (r *Ring) Capacity() int {
	return len(r.slots)
}

// Allocate returns the next id from the ring's clock.
func (r *Ring) Allocate() record.ID {
	return r.clock.Next()
}

// Put stamps rec with its slot index and publishes it. Records with a
// non-positive id are ignored.
func (r *Ring) Put(rec *record.Record) {
	if rec == nil || rec.ID <= record.NoID {
		return
	}
	slot := r.slot(rec.ID)
	rec.Index = slot
	r.slots[slot].Store(rec)
}

// Get returns the record registered under id if it is still resident.
func (r *Ring) Get(id record.ID) (*record.Record, bool) {
	if id <= record.NoID {
		return nil, false
	}
	rec := r.slots[r.slot(id)].Load()
	if rec == nil || rec.ID != id {
		metrics.StoreMissing.WithLabelValues("ring").Inc()
		return nil, false
	}
	return rec, true
}

// Close is a no-op; the ring holds no external resources.
func (r *Ring) Close() error {
	return nil
}

func (r *Ring) slot(id record.ID) int {
	return int(uint64(id) % uint64(len(r.slots)))
}
