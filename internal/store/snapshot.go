package store

import "github.com/roach88/lineage/internal/record"

// Snapshot is a read-only view over records loaded from an external log.
//
// It is used to reconstruct lineage after the fact, when the in-memory ring
// of the producing process is gone. A later record with the same id
// replaces an earlier one. Records keep the order they were added in as
// their index so none of them render as placeholders.
type Snapshot struct {
	records map[record.ID]*record.Record
	last    record.ID
}

// NewSnapshot indexes recs by id.
func NewSnapshot(recs []*record.Record) *Snapshot {
	s := &Snapshot{records: make(map[record.ID]*record.Record, len(recs))}
	for i, rec := range recs {
		if rec == nil || rec.ID <= record.NoID {
			continue
		}
		dup := *rec
		dup.Index = i
		s.records[rec.ID] = &dup
		if rec.ID > s.last {
			s.last = rec.ID
		}
	}
	return s
}

// Get returns the record for id.
func (s *Snapshot) Get(id record.ID) (*record.Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of distinct ids held.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Last returns the highest id held, or record.NoID when empty.
func (s *Snapshot) Last() record.ID {
	return s.last
}
