package engine

import (
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/lineage/internal/metrics"
	"github.com/roach88/lineage/internal/origin"
	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/sink"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/trail"
)

// Engine registers audited values and checks invariants on them.
//
// Thread-safety model:
//   - Audit, AuditAt and every check: safe from any goroutine
//   - LogAuditTrail: safe from any goroutine; walks race with writers and
//     treat evictions as missing records
//   - Close: call once, after the last Audit
//
// Under the None backend Audit returns immediately without allocating or
// synchronizing.
type Engine struct {
	policy   Policy
	backend  store.Backend
	bridge   *Bridge
	resolver *origin.Resolver
	capture  bool
	failure  failureHandler
	mode     trail.Mode
	capacity int
	logger   *zap.Logger

	outMu sync.Mutex
	out   io.Writer

	registered prometheus.Counter
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithPolicy sets the backend and failure policy.
//
// Default: Policy{Backend: Dual}, violations are fatal.
func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithBackend replaces the backend the policy would build. Ignored under
// the None backend.
func WithBackend(b store.Backend) EngineOption {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithCapacity sets the ring capacity of the default backend.
//
// Default: store.DefaultCapacity
func WithCapacity(n int) EngineOption {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithOutput sets the writer rendered trails are written to.
// Default: os.Stderr
func WithOutput(w io.Writer) EngineOption {
	return func(e *Engine) {
		e.out = w
	}
}

// WithResolver sets the call-site resolver.
// Default: origin.DefaultResolver()
func WithResolver(r *origin.Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithOriginCapture turns stack-based call-site capture on or off. When
// off, Audit records no origin and callers use AuditAt to supply one.
//
// Default: on
func WithOriginCapture(on bool) EngineOption {
	return func(e *Engine) {
		e.capture = on
	}
}

// WithFailureMode sets how the trail of a failed check is rendered.
//
// Default: trail.Table
func WithFailureMode(m trail.Mode) EngineOption {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithBridge sets the channel bridge. Default: NewBridge(false).
func WithBridge(b *Bridge) EngineOption {
	return func(e *Engine) {
		e.bridge = b
	}
}

// New creates an Engine.
//
// Unless WithBackend is given, the backend follows the policy: a ring for
// Internal, the zap logger (debug level) behind a delivery queue for
// External, and both for Dual. When the logger does not log at debug level
// the external half discards records and no queue is started.
//
// Close must be called to stop the delivery queue and flush it.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		capture:  true,
		mode:     trail.Table,
		capacity: store.DefaultCapacity,
		logger:   zap.NewNop(),
		out:      os.Stderr,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.resolver == nil {
		e.resolver = origin.DefaultResolver()
	}
	if e.bridge == nil {
		e.bridge = NewBridge(false)
	}
	e.failure = failureFor(e.policy)

	if e.policy.Backend == None {
		e.backend = nil
	} else if e.backend == nil {
		e.backend = e.defaultBackend()
	}
	e.registered = metrics.Registrations.WithLabelValues(e.policy.Backend.String())

	e.logger.Info("lineage engine started",
		zap.String("policy", e.policy.String()),
		zap.String("failure_mode", e.mode.String()),
		zap.Bool("capture_origin", e.capture))

	return e
}

func (e *Engine) defaultBackend() store.Backend {
	external := func() store.Backend {
		return store.NewExternal(e.logPublisher())
	}
	switch e.policy.Backend {
	case Internal:
		return store.NewRing(e.capacity)
	case External:
		return external()
	default:
		return store.NewDual(store.NewRing(e.capacity), external())
	}
}

func (e *Engine) logPublisher() store.Publisher {
	if !e.logger.Core().Enabled(zapcore.DebugLevel) {
		return store.Discard
	}
	return sink.NewQueue(sink.NewLogSink(e.logger), sink.DefaultQueueConfig(), e.logger)
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Enabled reports whether values are registered at all.
func (e *Engine) Enabled() bool {
	return e.backend != nil
}

// Audit registers v as derived from parents and returns a reference to it.
// template uses one "{}" per parent; label may be empty.
//
// Passing more than record.MaxParents parents panics with a
// *record.ArityError under every policy.
func (e *Engine) Audit(v float64, label, template string, parents ...record.Ref) record.Ref {
	if e.backend == nil {
		if len(parents) > record.MaxParents {
			panic(&record.ArityError{Count: len(parents)})
		}
		return record.Ref{Value: v}
	}
	var at string
	if e.capture {
		at = e.resolver.Caller(0).String()
	}
	return e.register(at, v, label, template, parents)
}

// AuditAt is Audit with an explicit origin instead of a captured one.
func (e *Engine) AuditAt(at string, v float64, label, template string, parents ...record.Ref) record.Ref {
	if e.backend == nil {
		if len(parents) > record.MaxParents {
			panic(&record.ArityError{Count: len(parents)})
		}
		return record.Ref{Value: v}
	}
	return e.register(at, v, label, template, parents)
}

func (e *Engine) register(at string, v float64, label, template string, parents []record.Ref) record.Ref {
	id := e.backend.Allocate()
	rec, err := record.New(id, v, label, template, at, parents)
	if err != nil {
		panic(err)
	}
	e.backend.Put(rec)
	e.registered.Inc()
	return record.Ref{ID: id, Value: v}
}

// Get returns the record registered under id while it is still resident.
func (e *Engine) Get(id record.ID) (*record.Record, bool) {
	if e.backend == nil {
		return nil, false
	}
	return e.backend.Get(id)
}

// Render returns the lineage of id in the given mode without logging it.
func (e *Engine) Render(id record.ID, mode trail.Mode) (string, bool) {
	if e.backend == nil {
		return "", false
	}
	metrics.TrailRenders.WithLabelValues(mode.String()).Inc()
	return trail.Render(e.backend, id, mode)
}

// LogAuditTrail renders the lineage of id, logs it and writes it to the
// output. It reports false when nothing could be rendered.
func (e *Engine) LogAuditTrail(id record.ID, mode trail.Mode) bool {
	text, ok := e.Render(id, mode)
	if !ok {
		return false
	}
	caller := e.resolver.Caller(0).String()
	e.logger.Info("audit trail",
		zap.Int64("id", int64(id)),
		zap.String("mode", mode.String()),
		zap.String("called_from", caller),
		zap.String("trail", text))
	if mode == trail.Table {
		text += "called from: " + caller + "\n"
	}
	e.write(text)
	return true
}

// ContinueAuditTo records n as the tail of lineage on channel.
func (e *Engine) ContinueAuditTo(channel string, n record.Ref) {
	if e.backend == nil {
		return
	}
	e.bridge.Continue(channel, n)
}

// ContinueAuditFrom registers v labeled with channel. Its sole parent is
// the channel's tail when one was recorded; otherwise v is a leaf.
func (e *Engine) ContinueAuditFrom(channel string, v float64) record.Ref {
	if e.backend == nil {
		return record.Ref{Value: v}
	}
	var at string
	if e.capture {
		at = e.resolver.Caller(0).String()
	}
	if tail, ok := e.bridge.Take(channel); ok {
		return e.register(at, v, channel, "{}", []record.Ref{tail})
	}
	return e.register(at, v, channel, "", nil)
}

// Bridge returns the channel bridge.
func (e *Engine) Bridge() *Bridge {
	return e.bridge
}

// Close flushes and releases the backend.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

func (e *Engine) write(text string) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	io.WriteString(e.out, text)
}
