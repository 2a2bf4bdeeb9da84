package store

import (
	"errors"

	"github.com/roach88/lineage/internal/record"
)

// Dual fans every registration out to two backends.
//
// Ids come from the primary. The secondary receives its own copy of each
// record so neither backend observes writes made by the other. Get consults
// the primary first and falls back to the secondary.
type Dual struct {
	primary   Backend
	secondary Backend
}

// NewDual combines primary and secondary.
func NewDual(primary, secondary Backend) *Dual {
	return &Dual{primary: primary, secondary: secondary}
}

// Allocate returns the next id from the primary.
func (d *Dual) Allocate() record.ID {
	return d.primary.Allocate()
}

// Put publishes rec to both backends.
func (d *Dual) Put(rec *record.Record) {
	dup := *rec
	d.primary.Put(rec)
	d.secondary.Put(&dup)
}

// Get returns the record from whichever backend still holds it.
func (d *Dual) Get(id record.ID) (*record.Record, bool) {
	if rec, ok := d.primary.Get(id); ok {
		return rec, true
	}
	return d.secondary.Get(id)
}

// Close closes both backends and joins their errors.
func (d *Dual) Close() error {
	return errors.Join(d.primary.Close(), d.secondary.Close())
}
