package sink

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*SQLiteSink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lineage.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenSQLite_CreatesDatabase(t *testing.T) {
	_, path := openTestDB(t)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.db")
	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, s.Close())
	}
}

func TestSQLiteSink_WriteAndRead(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	for i, rec := range accumulator(t) {
		require.NoError(t, s.Write(ctx, NewEvent("p1", rec, at.Add(time.Duration(i)*time.Millisecond))))
	}

	events, err := s.Events(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, int64(3), events[2].ID)
	assert.Equal(t, []Parent{{ID: 3, Value: 11}, {ID: 2, Value: 6}}, events[2].Parents)
	assert.Nil(t, events[0].Parents)
	assert.True(t, at.Add(2*time.Millisecond).Equal(events[2].Timestamp))

	recs, err := Records(events, "p1")
	require.NoError(t, err)
	assert.Equal(t, "{}+{}", recs[2].Template)
}

func TestSQLiteSink_DuplicateIgnored(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()
	rec := mustRecord(t, 1, 1, "x", "")

	require.NoError(t, s.Write(ctx, NewEvent("p1", rec, at)))
	require.NoError(t, s.Write(ctx, NewEvent("p1", rec, at)))
	require.NoError(t, s.Write(ctx, NewEvent("p2", rec, at)))

	events, err := s.Events(ctx, "")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSQLiteSink_NonFiniteValues(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, NewEvent("p1", mustRecord(t, 1, math.NaN(), "", ""), at)))
	require.NoError(t, s.Write(ctx, NewEvent("p1", mustRecord(t, 2, math.Inf(-1), "", ""), at)))

	events, err := s.Events(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, math.IsNaN(float64(events[0].Value)))
	assert.True(t, math.IsInf(float64(events[1].Value), -1))
}

func TestSQLiteSink_LatestProcess(t *testing.T) {
	s, _ := openTestDB(t)
	ctx := context.Background()

	latest, err := s.LatestProcess(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	require.NoError(t, s.Write(ctx, NewEvent("old", mustRecord(t, 1, 1, "", ""), at)))
	require.NoError(t, s.Write(ctx, NewEvent("new", mustRecord(t, 1, 1, "", ""), at.Add(time.Second))))

	latest, err = s.LatestProcess(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest)
}

func TestSQLiteSink_EmptyResult(t *testing.T) {
	s, _ := openTestDB(t)

	events, err := s.Events(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
