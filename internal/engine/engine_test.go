package engine

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/lineage/internal/origin"
	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/sink"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/trail"
)

type testEngine struct {
	*Engine
	out  *bytes.Buffer
	logs *observer.ObservedLogs
}

// newTestEngine builds an internal-only engine whose output and logs are
// captured. Engine methods are the only internal frames so captured
// origins point at the test functions.
func newTestEngine(t *testing.T, opts ...EngineOption) *testEngine {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	out := &bytes.Buffer{}
	base := []EngineOption{
		WithPolicy(Policy{Backend: Internal}),
		WithCapacity(64),
		WithLogger(zap.New(core)),
		WithOutput(out),
		WithResolver(origin.NewResolver("github.com/roach88/lineage/internal/engine.(*Engine)")),
	}
	e := New(append(base, opts...)...)
	t.Cleanup(func() { e.Close() })
	return &testEngine{Engine: e, out: out, logs: logs}
}

func rowIDs(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "called from") {
			continue
		}
		ids = append(ids, strings.Fields(line)[0])
	}
	return ids
}

func catchPanic(fn func()) (recovered any) {
	defer func() { recovered = recover() }()
	fn()
	return nil
}

func TestEngine_AuditRegisters(t *testing.T) {
	e := newTestEngine(t)

	a := e.Audit(5, "a", "{}")
	assert.Equal(t, 5.0, a.Value, "value is returned unchanged")
	assert.Equal(t, record.ID(1), a.ID)

	rec, ok := e.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "a", rec.Label)
	assert.True(t, strings.HasPrefix(rec.Origin, "github.com/roach88/lineage/internal/engine.TestEngine_AuditRegisters(engine_test.go:"), rec.Origin)
}

func TestEngine_AuditAtUsesExplicitOrigin(t *testing.T) {
	e := newTestEngine(t)

	n := e.AuditAt("scenario:step", 1, "", "")

	rec, ok := e.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, "scenario:step", rec.Origin)
}

func TestEngine_OriginCaptureDisabled(t *testing.T) {
	e := newTestEngine(t, WithOriginCapture(false))

	n := e.Audit(1, "", "")

	rec, _ := e.Get(n.ID)
	assert.Equal(t, "Unknown", rec.OriginText())
}

func TestEngine_AccumulatorTrail(t *testing.T) {
	e := newTestEngine(t)

	a := e.Audit(5, "a", "{}")
	b := e.Audit(a.Value+1, "b", "{}+1", a)
	acc := e.Audit(11, "", "{}+{}", record.Self, b)
	require.Equal(t, record.ID(3), acc.ID)

	require.True(t, e.LogAuditTrail(acc.ID, trail.Table))

	out := e.out.String()
	assert.Equal(t, []string{"1", "2", "3", "3"}, rowIDs(out))
	assert.Contains(t, out, "= 11+6\n")
	assert.Contains(t, out, "= #3+b\n")
	assert.Contains(t, out, "called from: github.com/roach88/lineage/internal/engine.TestEngine_AccumulatorTrail(")

	entries := e.logs.FilterMessage("audit trail").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "table", entries[0].ContextMap()["mode"])
}

func TestEngine_LogAuditTrailModes(t *testing.T) {
	e := newTestEngine(t)
	x := e.Audit(2, "x", "")
	y := e.Audit(4, "y", "{}*2", x)

	require.True(t, e.LogAuditTrail(y.ID, trail.Expression))
	assert.Equal(t, "2 = 2*2\n", e.out.String())

	e.out.Reset()
	require.True(t, e.LogAuditTrail(y.ID, trail.Tree))
	assert.Equal(t, "    1 = x = 2\n2 = y = 2*2\n", e.out.String())

	assert.False(t, e.LogAuditTrail(99, trail.Expression))
}

func TestEngine_BoundedRetention(t *testing.T) {
	e := newTestEngine(t, WithCapacity(4))

	first := e.Audit(0, "", "")
	for i := 1; i <= 4; i++ {
		e.Audit(float64(i), "", "")
	}

	_, ok := e.Get(first.ID)
	assert.False(t, ok)
	_, ok = e.Get(first.ID + 1)
	assert.True(t, ok)

	// An evicted parent renders as missing rather than failing.
	y := e.Audit(1, "y", "{}+1", first)
	out, ok := e.Render(y.ID, trail.Tree)
	require.True(t, ok)
	assert.Contains(t, out, "    unable to find 1\n")
}

func TestEngine_ArityOverflowPanics(t *testing.T) {
	parents := make([]record.Ref, record.MaxParents+1)

	for _, b := range []Backend{Internal, None} {
		t.Run(b.String(), func(t *testing.T) {
			e := newTestEngine(t, WithPolicy(Policy{Backend: b}))

			r := catchPanic(func() { e.Audit(1, "", "", parents...) })

			err, ok := r.(error)
			require.True(t, ok, "panic value should be an error, got %v", r)
			assert.True(t, record.IsArityError(err))
		})
	}
}

func TestEngine_NonePolicy(t *testing.T) {
	e := newTestEngine(t, WithPolicy(Policy{Backend: None}))

	n := e.Audit(3, "x", "{}")
	assert.Equal(t, record.Ref{ID: record.NoID, Value: 3}, n)
	assert.False(t, e.Enabled())
	assert.False(t, e.LogAuditTrail(n.ID, trail.Table))

	e.ContinueAuditTo("ch", n)
	assert.Zero(t, e.Bridge().Len())
	assert.Equal(t, record.NoID, e.ContinueAuditFrom("ch", 1).ID)

	assert.NoError(t, e.IsPositive(e.Audit(-1, "", "")))
	assert.NoError(t, e.IsFinite(e.Audit(math.NaN(), "", "")))
	assert.NoError(t, e.IsNear(e.Audit(1, "", ""), 5, 0.1))
	assert.Empty(t, e.out.String())
	assert.Zero(t, e.logs.FilterMessage("invariant violated").Len())
}

func TestEngine_NonePolicyDoesNotAllocate(t *testing.T) {
	e := New(WithPolicy(Policy{Backend: None}))
	a := record.Ref{ID: 1, Value: 2}
	b := record.Ref{ID: 2, Value: 3}

	var got record.Ref
	allocs := testing.AllocsPerRun(1000, func() {
		got = e.Audit(got.Value+1, "sum", "{}+{}", a, b)
	})

	assert.Zero(t, allocs)
}

func TestEngine_NonePolicyFailingCheckDoesNotAllocate(t *testing.T) {
	e := New(WithPolicy(Policy{Backend: None}))
	n := record.Ref{Value: math.Inf(1)}

	var err error
	allocs := testing.AllocsPerRun(1000, func() {
		err = e.IsFinite(n)
	})

	assert.NoError(t, err)
	assert.Zero(t, allocs)
}

func TestEngine_ConcurrentAuditUniqueIDs(t *testing.T) {
	e := newTestEngine(t, WithCapacity(1<<14), WithOriginCapture(false))
	const goroutines = 16
	const perGoroutine = 500

	var wg sync.WaitGroup
	ids := make(chan record.ID, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				ids <- e.Audit(float64(i), "", "").ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[record.ID]bool)
	lo, hi := record.ID(math.MaxInt64), record.NoID
	for id := range ids {
		require.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
		lo, hi = min(lo, id), max(hi, id)
	}
	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, record.ID(1), lo, "ids start at 1")
	assert.Equal(t, record.ID(goroutines*perGoroutine), hi, "ids have no gaps")
}

func TestEngine_ChannelContinuity(t *testing.T) {
	e := newTestEngine(t)
	var tail record.Ref
	for i := 0; i < 7; i++ {
		tail = e.Audit(float64(i), "", "")
	}
	require.Equal(t, record.ID(7), tail.ID)

	e.ContinueAuditTo("x", tail)
	got := e.ContinueAuditFrom("x", 3.14)

	assert.Equal(t, 3.14, got.Value)
	rec, ok := e.Get(got.ID)
	require.True(t, ok)
	assert.Equal(t, []record.ID{7}, rec.ParentIDs())
	assert.Equal(t, "x", rec.Label)
	assert.Equal(t, "{}", rec.Template)

	// Without clear-on-read the tail stays for repeated reads.
	again := e.ContinueAuditFrom("x", 1)
	rec, _ = e.Get(again.ID)
	assert.Equal(t, []record.ID{7}, rec.ParentIDs())
}

func TestEngine_ChannelWithoutTailIsLeaf(t *testing.T) {
	e := newTestEngine(t)

	got := e.ContinueAuditFrom("empty", 2)

	rec, ok := e.Get(got.ID)
	require.True(t, ok)
	assert.Empty(t, rec.ParentIDs())
	assert.Equal(t, "empty", rec.Label)
}

func TestEngine_ClearOnReadBridge(t *testing.T) {
	e := newTestEngine(t, WithBridge(NewBridge(true)))
	e.ContinueAuditTo("x", e.Audit(1, "", ""))

	first := e.ContinueAuditFrom("x", 2)
	second := e.ContinueAuditFrom("x", 3)

	rec, _ := e.Get(first.ID)
	assert.Len(t, rec.ParentIDs(), 1)
	rec, _ = e.Get(second.ID)
	assert.Empty(t, rec.ParentIDs())
}

func TestEngine_DualDefaultLogsExternally(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := New(WithLogger(zap.New(core)), WithOutput(&bytes.Buffer{}), WithCapacity(8))

	n := e.Audit(math.Pi, "pi", "")
	require.NoError(t, e.Close())

	rec, ok := e.Get(n.ID)
	require.True(t, ok, "dual keeps the in-memory copy")
	assert.Equal(t, "pi", rec.Label)

	entries := logs.FilterMessage("lineage_record").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "pi", entries[0].ContextMap()["label"])
}

func TestEngine_LogPublisherNeedsDebug(t *testing.T) {
	e := New(WithOutput(&bytes.Buffer{}))
	defer e.Close()
	assert.Equal(t, store.Discard, e.logPublisher(), "nop logger starts no queue")

	info, _ := observer.New(zap.InfoLevel)
	e = New(WithLogger(zap.New(info)), WithOutput(&bytes.Buffer{}))
	defer e.Close()
	assert.Equal(t, store.Discard, e.logPublisher())

	debug, _ := observer.New(zap.DebugLevel)
	e = New(WithPolicy(Policy{Backend: Internal}), WithLogger(zap.New(debug)))
	pub := e.logPublisher()
	defer pub.Close()
	assert.IsType(t, &sink.Queue{}, pub)
}

func TestEngine_ExternalOnlyForgets(t *testing.T) {
	e := New(WithPolicy(Policy{Backend: External}), WithOutput(&bytes.Buffer{}))
	defer e.Close()

	n := e.Audit(1, "", "")
	assert.Equal(t, record.ID(1), n.ID)
	_, ok := e.Get(n.ID)
	assert.False(t, ok)
}
