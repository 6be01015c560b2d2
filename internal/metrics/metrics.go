// Package metrics exposes Prometheus instrumentation for the ingestor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the events counter.
const (
	OutcomeCompleted   = "completed"
	OutcomeRejected    = "rejected"
	OutcomeSkipped     = "skipped"
	OutcomeQuarantined = "quarantined"
)

var (
	// EventsTotal counts finalize events by terminal outcome.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_ingest_events_total",
		Help: "Finalize events processed, by terminal outcome.",
	}, []string{"outcome"})

	// FailuresTotal counts workflow failures by error class and stage.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_ingest_failures_total",
		Help: "Workflow failures, by error class and processing stage.",
	}, []string{"class", "stage"})

	// QuarantineStepFailures counts best-effort quarantine steps that
	// failed. These never surface as errors, so the counter is the only
	// signal that objects may be stuck outside dead-letter/.
	QuarantineStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_ingest_quarantine_step_failures_total",
		Help: "Failed quarantine steps, by step.",
	}, []string{"step"})

	// Duration observes wall-clock time per workflow run, for every
	// terminal outcome.
	Duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_ingest_duration_seconds",
		Help:    "Wall-clock duration of one ingestion workflow run, by terminal outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// VariantsGenerated counts derived variants uploaded, by tier.
	VariantsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_ingest_variants_total",
		Help: "Derived variants uploaded, by size tier.",
	}, []string{"tier"})
)
