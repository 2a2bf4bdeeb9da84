// Package lineage records how numbers were computed.
//
// Every value passed through Engine.Audit is registered with the values it
// was derived from, a template describing the computation, and the call
// site that produced it. When an invariant check fails, the engine renders
// the value's full derivation so the bad input can be found without a
// debugger:
//
//	eng := lineage.New(lineage.WithPolicy(lineage.Policy{Backend: lineage.Internal}))
//	defer eng.Close()
//
//	price := eng.Audit(19.99, "price", "")
//	qty := eng.Audit(3, "qty", "")
//	total := eng.Audit(price.Value*qty.Value, "total", "{}*{}", price, qty)
//	if err := eng.IsPositive(total); err != nil {
//		// err is a *lineage.ViolationError carrying the rendered trail
//	}
//
// Memory is bounded: only the most recent records stay resident and older
// lineage renders as missing. Dual and External policies also hand every
// record to external sinks (log, JSONL, SQLite, Kafka) from which the
// lineage command can rebuild trails offline.
package lineage

import (
	"go.uber.org/zap"

	"github.com/roach88/lineage/internal/config"
	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/origin"
	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/trail"
)

type (
	// Engine registers audited values and checks invariants on them.
	Engine = engine.Engine
	// Option configures an Engine.
	Option = engine.EngineOption
	// Num is an audited value together with the id it was registered under.
	Num = record.Ref
	// ID identifies one registration.
	ID = record.ID
	// Record is the immutable descriptor of one registration.
	Record = record.Record
	// Mode selects a trail format.
	Mode = trail.Mode
	// Policy selects the backend and how failed checks behave.
	Policy = engine.Policy
	// Backend selects where registrations go.
	Backend = engine.Backend
	// ViolationError reports a failed invariant check.
	ViolationError = engine.ViolationError
	// ArityError reports a registration with too many parents.
	ArityError = record.ArityError
	// Bridge carries lineage across asynchronous boundaries.
	Bridge = engine.Bridge
	// Config is the file and environment configuration.
	Config = config.Config
	// Resolver attributes records to the application call site.
	Resolver = origin.Resolver
)

// Trail formats.
const (
	Table      = trail.Table
	Tree       = trail.Tree
	Expression = trail.Expression
)

// Backends.
const (
	Dual     = engine.Dual
	None     = engine.None
	Internal = engine.Internal
	External = engine.External
)

// MaxParents is the most parents a single registration may name.
const MaxParents = record.MaxParents

// Self is the parent an accumulator passes to refer to itself.
var Self = record.Self

// Literal wraps a constant that was never registered.
func Literal(v float64) Num {
	return record.Literal(v)
}

// New creates an Engine. Without options it uses the Dual backend, fatal
// checks, table-mode failure trails and a no-op logger.
//
// Close must be called when the engine is no longer needed: under the
// Dual and External backends it stops and flushes the delivery queue.
func New(opts ...Option) *Engine {
	return engine.New(opts...)
}

// FromConfig loads the configuration at path (empty for defaults plus
// environment) and builds an Engine from it.
func FromConfig(path string, logger *zap.Logger) (*Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return config.Build(cfg, logger)
}

// ParseMode parses "table", "tree" or "expression".
func ParseMode(s string) (Mode, error) {
	return trail.ParseMode(s)
}

// IsViolation returns true if err is, or wraps, a *ViolationError.
func IsViolation(err error) bool {
	return engine.IsViolation(err)
}

// NewBridge creates a channel bridge for WithBridge.
func NewBridge(clearOnRead bool) *Bridge {
	return engine.NewBridge(clearOnRead)
}

// NewResolver returns a call-site resolver that also skips frames whose
// function starts with one of prefixes, typically the caller's own
// wrapper packages.
func NewResolver(prefixes ...string) *Resolver {
	return origin.DefaultResolver().With(prefixes...)
}

// Engine options.
var (
	WithPolicy        = engine.WithPolicy
	WithCapacity      = engine.WithCapacity
	WithLogger        = engine.WithLogger
	WithOutput        = engine.WithOutput
	WithResolver      = engine.WithResolver
	WithOriginCapture = engine.WithOriginCapture
	WithFailureMode   = engine.WithFailureMode
	WithBridge        = engine.WithBridge
)
