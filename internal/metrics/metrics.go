// Package metrics provides Prometheus metrics for the risk pipeline:
// ingestion volumes, row-level failures, balancing output, training
// and scoring performance. Metrics are exposed by the CLI on the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Ingestion metrics
	RowsRead     prometheus.Counter // Rows successfully read from the bulk source
	RowsRejected prometheus.Counter // Rows rejected by the reader (parse failures)

	// Normalization metrics
	RowsNormalized   prometheus.Counter // Rows mapped onto the fixed schema
	SchemaMismatches prometheus.Counter // Rows skipped for schema mismatches

	// Balancing metrics
	SyntheticRecords prometheus.Counter // Synthetic minority records generated

	// Selection metrics
	FeaturesSelected prometheus.Gauge // Features retained by the last fit

	// Model metrics
	TrainDuration prometheus.Histogram // Training duration in seconds
	ScoreLatency  prometheus.Histogram // Per-record scoring latency in seconds
	RiskScores    prometheus.Histogram // Distribution of output risk probabilities

	// System metrics
	RunsTotal   prometheus.Counter // Pipeline runs started
	ErrorsTotal prometheus.Counter // Run-level failures
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping test
// runs isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RowsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "rows_read_total",
			Help: "Rows successfully read from the bulk source",
		}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "rows_rejected_total",
			Help: "Rows rejected by the bulk reader",
		}),
		RowsNormalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "rows_normalized_total",
			Help: "Rows mapped onto the fixed schema",
		}),
		SchemaMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "schema_mismatches_total",
			Help: "Rows skipped because they did not fit the schema",
		}),
		SyntheticRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "synthetic_records_total",
			Help: "Synthetic minority records generated by balancing",
		}),
		FeaturesSelected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "features_selected",
			Help: "Features retained by the most recent selector fit",
		}),
		TrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "train_duration_seconds",
			Help:    "Classifier training duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ScoreLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "score_latency_seconds",
			Help:    "Per-record scoring latency in seconds",
			Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 1.0},
		}),
		RiskScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_scores",
			Help:    "Distribution of output risk probabilities",
			Buckets: prometheus.LinearBuckets(0.0, 0.1, 11),
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runs_total",
			Help: "Pipeline runs started",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Run-level failures",
		}),
	}
}
