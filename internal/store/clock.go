package store

import (
	"sync/atomic"

	"github.com/roach88/lineage/internal/record"
)

// Clock hands out record ids.
//
// Ids are strictly increasing in allocation order and start at 1, leaving
// record.NoID free for absent parents.
//
// Thread-safety: Clock is safe for concurrent use. Next is a single atomic
// add, so it never blocks and never loses or repeats a value.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first id is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next id is start+1.
// Used to resume numbering after ids read back from an external log.
func NewClockAt(start record.ID) *Clock {
	c := &Clock{}
	c.seq.Store(int64(start))
	return c
}

// Next returns the next id.
func (c *Clock) Next() record.ID {
	return record.ID(c.seq.Add(1))
}

// Current returns the last id handed out without allocating a new one.
func (c *Clock) Current() record.ID {
	return record.ID(c.seq.Load())
}
