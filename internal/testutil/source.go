package testutil

import (
	"sync"

	"github.com/roach88/lineage/internal/record"
)

// MapSource is a mutable record lookup for renderer tests.
//
// Unlike a ring store, ids never collide and nothing is evicted unless
// Delete is called, which makes "missing" cases explicit in tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MapSource struct {
	mu      sync.RWMutex
	records map[record.ID]*record.Record
	lookups map[record.ID]int
}

// NewMapSource creates a source holding recs. Records with a zero index
// get their id as index; negative indexes are kept so tests can store leaf
// sentinels.
func NewMapSource(recs ...*record.Record) *MapSource {
	s := &MapSource{
		records: make(map[record.ID]*record.Record),
		lookups: make(map[record.ID]int),
	}
	for _, r := range recs {
		s.Put(r)
	}
	return s
}

// Put stores r. A zero index is replaced by the record's id.
func (s *MapSource) Put(r *record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Index == 0 {
		r.Index = int(r.ID)
	}
	s.records[r.ID] = r
}

// Delete removes id, simulating eviction.
func (s *MapSource) Delete(id record.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Get implements the store read contract.
func (s *MapSource) Get(id record.ID) (*record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[id]++
	r, ok := s.records[id]
	return r, ok
}

// Lookups returns how many times id was requested.
func (s *MapSource) Lookups(id record.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups[id]
}

// ScriptedSource answers lookups for selected ids from a script, one entry
// per call, and defers to Base for everything else. A nil script entry
// means "missing". Once a script is exhausted its last entry repeats.
//
// It models records evicted (or appearing) while a walk is in progress.
type ScriptedSource struct {
	Base    *MapSource
	mu      sync.Mutex
	scripts map[record.ID][]*record.Record
	calls   map[record.ID]int
}

// NewScriptedSource wraps base.
func NewScriptedSource(base *MapSource) *ScriptedSource {
	return &ScriptedSource{
		Base:    base,
		scripts: make(map[record.ID][]*record.Record),
		calls:   make(map[record.ID]int),
	}
}

// Script sets the successive answers for id.
func (s *ScriptedSource) Script(id record.ID, answers ...*record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[id] = answers
}

// Get implements the store read contract.
func (s *ScriptedSource) Get(id record.ID) (*record.Record, bool) {
	s.mu.Lock()
	script, ok := s.scripts[id]
	if !ok || len(script) == 0 {
		s.mu.Unlock()
		return s.Base.Get(id)
	}
	n := s.calls[id]
	s.calls[id]++
	s.mu.Unlock()

	if n >= len(script) {
		n = len(script) - 1
	}
	r := script[n]
	return r, r != nil
}
