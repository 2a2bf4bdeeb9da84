package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/roach88/lineage/internal/metrics"
	"github.com/roach88/lineage/internal/record"
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Process is stamped on every event.
	// Default: a fresh NewProcessID
	Process string

	// QueueSize is the number of records that can wait for delivery.
	// Default: 10000
	QueueSize int

	// Workers is the number of delivery goroutines.
	// Default: 1, which keeps events in registration order
	Workers int

	// WriteTimeout bounds each write to the underlying sink.
	// Default: 5s
	WriteTimeout time.Duration

	// DropOnFull controls logging when the queue is full. Records are
	// dropped either way; when false each drop is also logged.
	DropOnFull bool

	// CircuitBreakerThreshold is the number of consecutive failures before
	// new records are dropped without queueing.
	// Default: 5
	CircuitBreakerThreshold int

	// CircuitBreakerResetTime is how long the circuit stays open.
	// Default: 30s
	CircuitBreakerResetTime time.Duration

	// Now stamps events. Default: time.Now
	Now func() time.Time
}

// DefaultQueueConfig returns sensible defaults for a queue.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		QueueSize:               10000,
		Workers:                 1,
		WriteTimeout:            5 * time.Second,
		DropOnFull:              true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerResetTime: 30 * time.Second,
	}
}

// QueueHealth is a point-in-time view of a queue.
type QueueHealth struct {
	Name             string `json:"name"`
	Healthy          bool   `json:"healthy"`
	QueueLength      int    `json:"queueLength"`
	QueueCapacity    int    `json:"queueCapacity"`
	Dropped          int64  `json:"dropped"`
	Processed        int64  `json:"processed"`
	Failed           int64  `json:"failed"`
	ConsecutiveFails int    `json:"consecutiveFails"`
	CircuitOpen      bool   `json:"circuitOpen"`
	LastError        string `json:"lastError,omitempty"`
}

type pending struct {
	rec *record.Record
	at  time.Time
}

// Queue delivers records to a Sink from worker goroutines.
//
// Publish never blocks: when the queue is full, or the circuit breaker is
// open after repeated sink failures, the record is dropped and counted.
// Queue implements store.Publisher.
type Queue struct {
	sink    Sink
	queue   chan pending
	config  QueueConfig
	process string
	logger  *zap.Logger

	dropped   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	consecutiveFails atomic.Int32
	circuitOpen      atomic.Bool
	openedAt         atomic.Int64 // unix nanos

	droppedCounter   prometheus.Counter
	processedCounter prometheus.Counter
	errorCounter     prometheus.Counter
	depth            prometheus.Gauge

	errMu     sync.Mutex
	lastError string

	// mu guards closed against concurrent Publish; Publish holds it shared.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts delivery to sink.
func NewQueue(sink Sink, cfg QueueConfig, logger *zap.Logger) *Queue {
	def := DefaultQueueConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.CircuitBreakerThreshold <= 0 {
		cfg.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if cfg.CircuitBreakerResetTime <= 0 {
		cfg.CircuitBreakerResetTime = def.CircuitBreakerResetTime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Process == "" {
		cfg.Process = NewProcessID()
	}

	name := sink.Name()
	q := &Queue{
		sink:             sink,
		queue:            make(chan pending, cfg.QueueSize),
		config:           cfg,
		process:          cfg.Process,
		logger:           logger.Named("queue").With(zap.String("sink", name)),
		droppedCounter:   metrics.SinkDropped.WithLabelValues(name),
		processedCounter: metrics.SinkProcessed.WithLabelValues(name),
		errorCounter:     metrics.SinkErrors.WithLabelValues(name),
		depth:            metrics.SinkQueueDepth.WithLabelValues(name),
	}

	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}

	q.logger.Info("lineage queue started",
		zap.String("process", cfg.Process),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Int("workers", cfg.Workers))

	return q
}

// Process returns the process id stamped on events.
func (q *Queue) Process() string {
	return q.process
}

// Publish enqueues rec without blocking. It reports false when rec was
// dropped.
func (q *Queue) Publish(rec *record.Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.drop(rec, "closed")
		return false
	}
	if q.circuitOpen.Load() && !q.tryClose() {
		q.drop(rec, "circuit_open")
		return false
	}

	select {
	case q.queue <- pending{rec: rec, at: q.config.Now()}:
		q.depth.Inc()
		return true
	default:
		q.drop(rec, "queue_full")
		return false
	}
}

func (q *Queue) drop(rec *record.Record, reason string) {
	q.dropped.Add(1)
	q.droppedCounter.Inc()
	if !q.config.DropOnFull {
		q.logger.Warn("lineage record dropped",
			zap.String("reason", reason),
			zap.Int64("id", int64(rec.ID)))
	}
}

// tryClose closes the circuit once the reset time has passed.
func (q *Queue) tryClose() bool {
	opened := q.openedAt.Load()
	if time.Since(time.Unix(0, opened)) < q.config.CircuitBreakerResetTime {
		return false
	}
	if q.openedAt.CompareAndSwap(opened, 0) {
		q.logger.Info("closing circuit breaker")
		q.consecutiveFails.Store(0)
		q.circuitOpen.Store(false)
	}
	return true
}

func (q *Queue) work(worker int) {
	defer q.wg.Done()

	for p := range q.queue {
		q.depth.Dec()
		ev := NewEvent(q.process, p.rec, p.at)

		ctx, cancel := context.WithTimeout(context.Background(), q.config.WriteTimeout)
		err := q.sink.Write(ctx, ev)
		cancel()

		if err == nil {
			q.processed.Add(1)
			q.processedCounter.Inc()
			q.consecutiveFails.Store(0)
			continue
		}

		q.failed.Add(1)
		q.errorCounter.Inc()
		fails := q.consecutiveFails.Add(1)

		q.errMu.Lock()
		q.lastError = err.Error()
		q.errMu.Unlock()

		q.logger.Error("failed to write lineage record",
			zap.Int("worker", worker),
			zap.Int64("id", ev.ID),
			zap.String("error", err.Error()),
			zap.Int32("consecutive_fails", fails))

		if int(fails) >= q.config.CircuitBreakerThreshold && q.circuitOpen.CompareAndSwap(false, true) {
			q.openedAt.Store(time.Now().UnixNano())
			q.logger.Warn("circuit breaker opened", zap.Int32("consecutive_fails", fails))
		}
	}
}

// Health returns the current state of the queue.
func (q *Queue) Health() QueueHealth {
	q.errMu.Lock()
	lastError := q.lastError
	q.errMu.Unlock()

	length, capacity := len(q.queue), cap(q.queue)
	open := q.circuitOpen.Load()
	return QueueHealth{
		Name:             q.sink.Name(),
		Healthy:          !open && float64(length) < float64(capacity)*0.8,
		QueueLength:      length,
		QueueCapacity:    capacity,
		Dropped:          q.dropped.Load(),
		Processed:        q.processed.Load(),
		Failed:           q.failed.Load(),
		ConsecutiveFails: int(q.consecutiveFails.Load()),
		CircuitOpen:      open,
		LastError:        lastError,
	}
}

// Close stops accepting records, drains the queue and closes the sink.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("lineage queue closed",
		zap.Int64("processed", q.processed.Load()),
		zap.Int64("dropped", q.dropped.Load()),
		zap.Int64("failed", q.failed.Load()))
	return q.sink.Close()
}
