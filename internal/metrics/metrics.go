// Package metrics exposes Prometheus counters for lineage registration,
// invariant checks and external delivery.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_registrations_total",
		Help: "Total number of audited values registered",
	}, []string{"backend"})
	Violations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_violations_total",
		Help: "Total number of failed invariant checks",
	}, []string{"check", "failure"})
	TrailRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_trail_renders_total",
		Help: "Total number of audit trails rendered",
	}, []string{"mode"})
	// Missing lookups are expected once the ring wraps; a high rate relative
	// to renders means the capacity is too small for the trails requested.
	StoreMissing = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_store_missing_total",
		Help: "Total number of lookups for ids that were evicted or never stored",
	}, []string{"backend"})
	SinkProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_sink_processed_total",
		Help: "Total number of records written to an external sink",
	}, []string{"sink"})
	SinkDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_sink_dropped_total",
		Help: "Total number of records dropped because the delivery queue was full",
	}, []string{"sink"})
	SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_sink_errors_total",
		Help: "Total number of failed writes to an external sink",
	}, []string{"sink"})
	SinkQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lineage_sink_queue_depth",
		Help: "Number of records waiting in a sink delivery queue",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(Registrations)
	prometheus.MustRegister(Violations)
	prometheus.MustRegister(TrailRenders)
	prometheus.MustRegister(StoreMissing)
	prometheus.MustRegister(SinkProcessed)
	prometheus.MustRegister(SinkDropped)
	prometheus.MustRegister(SinkErrors)
	prometheus.MustRegister(SinkQueueDepth)
}
