package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal *prometheus.CounterVec
	eventLag    prometheus.Histogram
	buildChunks prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "worker",
			Name:      "build_events_total",
			Help:      "Total build lifecycle events consumed, by status.",
		},
		[]string{"service", "status"},
	)
	eventLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "worker",
			Name:      "build_event_lag_seconds",
			Help:      "Delay between event emission and consumption.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	buildChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "worker",
			Name:      "build_chunks",
			Help:      "Distribution of indexed chunks per completed build.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(eventsTotal, eventLag, buildChunks)

	return &WorkerMetrics{
		registry:    registry,
		eventsTotal: eventsTotal,
		eventLag:    eventLag,
		buildChunks: buildChunks,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBuildEvent counts one consumed event and, when the emission
// timestamp is known, its delivery lag.
func (m *WorkerMetrics) RecordBuildEvent(service, status string, emittedAt time.Time) {
	if status == "" {
		status = "unknown"
	}
	m.eventsTotal.WithLabelValues(service, status).Inc()
	if !emittedAt.IsZero() {
		m.eventLag.Observe(time.Since(emittedAt).Seconds())
	}
}

func (m *WorkerMetrics) RecordCompletedBuild(chunks int) {
	m.buildChunks.Observe(float64(chunks))
}
