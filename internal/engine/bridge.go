package engine

import (
	"sync"

	"github.com/roach88/lineage/internal/record"
)

// Bridge carries lineage across asynchronous boundaries.
//
// The producing side records the last value it emitted on a named channel;
// the consuming side registers its first value with that value as parent.
// Only the id and value cross the boundary, never the record.
//
// Example:
//
//	producer goroutine: e.ContinueAuditTo("orders", total)
//	consumer goroutine: t := e.ContinueAuditFrom("orders", msg.Total)
//
// Distinct channels never interfere. Concurrent writers on one channel get
// last-writer-wins semantics and nothing more.
type Bridge struct {
	mu          sync.RWMutex
	last        map[string]record.Ref
	clearOnRead bool
}

// NewBridge creates an empty bridge. When clearOnRead is set, Take removes
// the entry it returns so each hand-off is consumed once.
func NewBridge(clearOnRead bool) *Bridge {
	return &Bridge{
		last:        make(map[string]record.Ref),
		clearOnRead: clearOnRead,
	}
}

// Continue records n as the tail of lineage on channel.
//
// Thread-safe: Can be called concurrently.
func (b *Bridge) Continue(channel string, n record.Ref) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[channel] = n
}

// Take returns the tail of channel, removing it if the bridge clears on
// read.
//
// Thread-safe: Can be called concurrently.
func (b *Bridge) Take(channel string) (record.Ref, bool) {
	if !b.clearOnRead {
		b.mu.RLock()
		defer b.mu.RUnlock()
		n, ok := b.last[channel]
		return n, ok
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.last[channel]
	if ok {
		delete(b.last, channel)
	}
	return n, ok
}

// Clear removes the entry for channel.
//
// Thread-safe: Can be called concurrently.
func (b *Bridge) Clear(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.last, channel)
}

// Len returns the number of channels with a recorded tail.
//
// Used for testing and introspection.
// Thread-safe: Can be called concurrently.
func (b *Bridge) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.last)
}
