package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/record"
)

func register(t *testing.T, b Backend, v float64) *record.Record {
	t.Helper()
	rec, err := record.New(b.Allocate(), v, "", "{}", "", nil)
	require.NoError(t, err)
	b.Put(rec)
	return rec
}

func TestRing_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewRing(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewRing(-3).Capacity())
	assert.Equal(t, 8, NewRing(8).Capacity())
}

func TestRing_PutGet(t *testing.T) {
	r := NewRing(4)
	rec := register(t, r, 1.5)

	got, ok := r.Get(rec.ID)
	require.True(t, ok)
	assert.Same(t, rec, got)
	assert.Equal(t, 1, got.Index, "id 1 lives in slot 1")
}

func TestRing_BoundedRetention(t *testing.T) {
	const capacity = 16
	r := NewRing(capacity)

	recs := make([]*record.Record, 0, capacity+1)
	for i := 0; i <= capacity; i++ {
		recs = append(recs, register(t, r, float64(i)))
	}

	_, ok := r.Get(recs[0].ID)
	assert.False(t, ok, "oldest id should have been evicted")

	for _, want := range recs[1:] {
		got, ok := r.Get(want.ID)
		require.True(t, ok, "id %d should still be resident", want.ID)
		assert.Equal(t, want.Value, got.Value)
	}
}

func TestRing_GetUnknown(t *testing.T) {
	r := NewRing(4)

	_, ok := r.Get(3)
	assert.False(t, ok, "never registered")

	_, ok = r.Get(record.NoID)
	assert.False(t, ok)

	_, ok = r.Get(-7)
	assert.False(t, ok)
}

func TestRing_PutIgnoresInvalid(t *testing.T) {
	r := NewRing(4)
	r.Put(nil)
	r.Put(&record.Record{ID: record.NoID})

	_, ok := r.Get(record.NoID)
	assert.False(t, ok)
}

func TestRing_ConcurrentReadersNeverSeeMismatch(t *testing.T) {
	r := NewRing(8)
	const writers = 8
	const perWriter = 2000

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := r.Allocate()
				rec, _ := record.New(id, float64(id), "", "", "", nil)
				r.Put(rec)
			}
		}()
	}

	done := make(chan struct{})
	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for id := record.ID(1); id < 64; id++ {
				if rec, ok := r.Get(id); ok {
					assert.Equal(t, id, rec.ID)
					assert.Equal(t, float64(id), rec.Value)
				}
			}
		}
	}()

	wg.Wait()
	close(done)
	readerWG.Wait()

	assert.Equal(t, record.ID(writers*perWriter), r.clock.Current())
}
