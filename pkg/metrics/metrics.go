// Package metrics declares the Prometheus instrumentation surface (D6):
// sync-event throughput, handler retry counts, admission-queue depth and
// NAS health transitions. Grounded on the pack's direct-instrumentation
// idiom (github.com/prometheus/client_golang), the same package-level
// var-block-plus-init-MustRegister shape as cuemby-warren's pkg/metrics;
// the teacher's own pkg/metrics instruments an unrelated site-stats surface
// (num users/groups/storage amount) via an opencensus exporter feeding a
// gRPC-specific collector this module has no gRPC surface to attach to, so
// that shape isn't reused here.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SyncEventsTotal counts sync events by type and terminal outcome.
	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_sync_events_total",
			Help: "Total number of sync events processed by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// SyncEventDuration measures handler dispatch latency from PROCESSING
	// to a terminal state.
	SyncEventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docvault_sync_event_duration_seconds",
			Help:    "Time taken to process a sync event, by event type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	// HandlerRetriesTotal counts outbox-level retries by event type.
	HandlerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_handler_retries_total",
			Help: "Total number of sync event retries by event type",
		},
		[]string{"event_type"},
	)

	// HandlerFailuresTotal counts sync events that exhausted their retries.
	HandlerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_handler_failures_total",
			Help: "Total number of sync events that reached FAILED after exhausting retries",
		},
		[]string{"event_type"},
	)

	// AdmissionQueueDepth reports the current number of WAITING upload
	// tickets.
	AdmissionQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docvault_admission_queue_depth",
			Help: "Current number of WAITING upload admission tickets",
		},
	)

	// AdmissionActiveSessions reports the current number of admitted
	// (non-terminal) upload sessions.
	AdmissionActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docvault_admission_active_sessions",
			Help: "Current number of active (non-terminal) multipart upload sessions",
		},
	)

	// AdmissionActiveBytes reports the current total in-flight upload byte
	// reservation.
	AdmissionActiveBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docvault_admission_active_bytes",
			Help: "Current total reserved bytes across active multipart upload sessions",
		},
	)

	// NASHealthTransitionsTotal counts health-cell state transitions by
	// from/to state.
	NASHealthTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_nas_health_transitions_total",
			Help: "Total number of NAS health cell state transitions",
		},
		[]string{"from", "to"},
	)

	// NASHealthCurrent is 1 for the NAS health cell's current state, 0 for
	// the other two, set whenever the cell changes state; nothing is set
	// before the first transition.
	NASHealthCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docvault_nas_health_state",
			Help: "Current NAS health state (1 = active, 0 = inactive) by state label",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		SyncEventsTotal,
		SyncEventDuration,
		HandlerRetriesTotal,
		HandlerFailuresTotal,
		AdmissionQueueDepth,
		AdmissionActiveSessions,
		AdmissionActiveBytes,
		NASHealthTransitionsTotal,
		NASHealthCurrent,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an in-flight operation for later duration observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDurationVec records the elapsed time against a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
