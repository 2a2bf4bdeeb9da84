package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/metrics"
	"github.com/roach88/lineage/internal/record"
)

type fakePublisher struct {
	mu       sync.Mutex
	recs     []*record.Record
	closed   bool
	closeErr error
}

func (p *fakePublisher) Publish(rec *record.Record) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return true
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return p.closeErr
}

func TestExternal_PublishesAndForgets(t *testing.T) {
	pub := &fakePublisher{}
	e := NewExternal(pub)

	rec := register(t, e, 2)
	assert.Equal(t, record.ID(1), rec.ID)
	require.Len(t, pub.recs, 1)
	assert.Same(t, rec, pub.recs[0])

	_, ok := e.Get(rec.ID)
	assert.False(t, ok, "external backend keeps nothing in memory")

	require.NoError(t, e.Close())
	assert.True(t, pub.closed)
}

func TestDual_FansOut(t *testing.T) {
	pub := &fakePublisher{}
	ring := NewRing(4)
	d := NewDual(ring, NewExternal(pub))

	rec := register(t, d, 3)

	got, ok := d.Get(rec.ID)
	require.True(t, ok)
	assert.Same(t, rec, got)

	require.Len(t, pub.recs, 1)
	assert.NotSame(t, rec, pub.recs[0], "secondary gets its own copy")
	assert.Equal(t, rec.ID, pub.recs[0].ID)
	assert.Equal(t, rec.Value, pub.recs[0].Value)
}

func TestDual_FallsBackToSecondary(t *testing.T) {
	primary := NewRing(2)
	secondary := NewRingWithClock(64, NewClock())
	d := NewDual(primary, secondary)

	first := register(t, d, 1)
	register(t, d, 2)
	register(t, d, 3) // evicts first from the primary

	_, ok := primary.Get(first.ID)
	require.False(t, ok)

	got, ok := d.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Value)
}

func TestDual_EvictionCountedOnce(t *testing.T) {
	d := NewDual(NewRing(2), NewExternal(&fakePublisher{}))
	ringMissing := metrics.StoreMissing.WithLabelValues("ring")
	externalMissing := metrics.StoreMissing.WithLabelValues("external")

	first := register(t, d, 1)
	register(t, d, 2)
	register(t, d, 3)

	ringBefore := testutil.ToFloat64(ringMissing)
	externalBefore := testutil.ToFloat64(externalMissing)

	_, ok := d.Get(first.ID)
	require.False(t, ok)

	assert.Equal(t, ringBefore+1, testutil.ToFloat64(ringMissing))
	assert.Equal(t, externalBefore, testutil.ToFloat64(externalMissing))
}

func TestDiscard(t *testing.T) {
	e := NewExternal(Discard)

	rec := register(t, e, 4)
	assert.Equal(t, record.ID(1), rec.ID)
	assert.True(t, Discard.Publish(rec))
	assert.NoError(t, e.Close())
}

func TestDual_CloseJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	d := NewDual(NewRing(2), NewExternal(&fakePublisher{closeErr: boom}))

	err := d.Close()
	assert.ErrorIs(t, err, boom)
}

func TestSnapshot_Get(t *testing.T) {
	a, _ := record.New(1, 5, "a", "{}", "", nil)
	b, _ := record.New(2, 6, "b", "{}+1", "", []record.Ref{{ID: 1, Value: 5}})
	b2, _ := record.New(2, 7, "b", "{}+2", "", []record.Ref{{ID: 1, Value: 5}})

	s := NewSnapshot([]*record.Record{a, nil, b, b2})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, record.ID(2), s.Last())

	got, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, 7.0, got.Value, "later record with the same id wins")
	assert.False(t, got.IsPlaceholder())

	_, ok = s.Get(9)
	assert.False(t, ok)
}
