package store

import (
	"github.com/roach88/lineage/internal/record"
)

// Publisher delivers records to somewhere outside the process.
// Publish must not block; it reports false when the record was dropped.
type Publisher interface {
	Publish(rec *record.Record) bool
	Close() error
}

// External registers records by handing them to a Publisher. It keeps no
// records in memory, so Get always reports missing; lineage is rebuilt from
// the external log instead (see Snapshot).
type External struct {
	clock *Clock
	pub   Publisher
}

// NewExternal creates an external backend that publishes through pub.
func NewExternal(pub Publisher) *External {
	return &External{clock: NewClock(), pub: pub}
}

// Allocate returns the next id.
func (e *External) Allocate() record.ID {
	return e.clock.Next()
}

// Put hands rec to the publisher.
func (e *External) Put(rec *record.Record) {
	e.pub.Publish(rec)
}

// Get always reports missing. Nothing is counted as a missing lookup:
// the backend never held the record.
func (e *External) Get(record.ID) (*record.Record, bool) {
	return nil, false
}

// Discard is a Publisher that drops every record.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(*record.Record) bool { return true }

func (discard) Close() error { return nil }

// Close closes the publisher, flushing anything still queued.
func (e *External) Close() error {
	return e.pub.Close()
}
