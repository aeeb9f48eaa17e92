package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the prometheus collectors shared by the API and
// worker binaries.
type Metrics struct {
	SweepDuration           prometheus.Histogram
	SweepTransitioned       prometheus.Counter
	ReconciliationMatched   prometheus.Counter
	ReconciliationOrphans   prometheus.Gauge
	SeriesGenerated         prometheus.Counter
	SeriesConflictsSkipped  prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	EventsPublished         *prometheus.CounterVec
	EventsFailed            *prometheus.CounterVec
	DatabaseOperations      *prometheus.CounterVec
}

// New registers and returns a metric set under the given prefix.
func New(prefix string) *Metrics {
	return NewWithRegistry(prefix, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metric set on a specific registry.
// Tests use this to avoid duplicate registration on the global one.
func NewWithRegistry(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_missed_sweep_duration_seconds",
			Help:    "Time spent sweeping overdue scheduled appointments",
			Buckets: prometheus.DefBuckets,
		}),
		SweepTransitioned: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_missed_sweep_transitioned_total",
			Help: "Appointments transitioned to missed by the sweeper",
		}),
		ReconciliationMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_reconciliation_matched_total",
			Help: "Session/appointment pairs auto-completed by reconciliation",
		}),
		ReconciliationOrphans: factory.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_reconciliation_orphan_sessions",
			Help: "Orphan sessions found by the most recent detection run",
		}),
		SeriesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_series_appointments_generated_total",
			Help: "Appointments generated from recurring templates",
		}),
		SeriesConflictsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_series_conflicts_skipped_total",
			Help: "Candidate slots skipped during generation due to conflicts",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_outbox_processing_latency_seconds",
			Help:    "Time spent draining a batch of outbox events",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_events_published_total",
			Help: "Outbox events published to the broker",
		}, []string{"event_type"}),
		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_events_failed_total",
			Help: "Outbox events that failed to publish",
		}, []string{"event_type"}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_database_operations_total",
			Help: "Database operations by name and outcome",
		}, []string{"operation", "status"}),
	}
}
