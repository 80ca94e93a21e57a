package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal      *prometheus.CounterVec
	answerFallbacks   *prometheus.CounterVec
	retrievedChunks   *prometheus.HistogramVec
	answerDuration    *prometheus.HistogramVec
	streamTokensTotal *prometheus.CounterVec
	buildsTotal       *prometheus.CounterVec
	buildChunksTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Total answered questions by effective strategy and chain.",
		},
		[]string{"service", "endpoint", "strategy", "chain"},
	)
	answerFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "rag",
			Name:      "fallbacks_total",
			Help:      "Total degraded answers by fallback reason.",
		},
		[]string{"service", "endpoint", "reason"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of source chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "rag",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	streamTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "rag",
			Name:      "stream_tokens_total",
			Help:      "Total tokens emitted on streaming answers.",
		},
		[]string{"service"},
	)
	buildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "build",
			Name:      "builds_total",
			Help:      "Total index builds by outcome.",
		},
		[]string{"service", "status"},
	)
	buildChunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "build",
			Name:      "chunks_total",
			Help:      "Total chunks indexed across builds.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerFallbacks,
		retrievedChunks,
		answerDuration,
		streamTokensTotal,
		buildsTotal,
		buildChunksTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		answersTotal:      answersTotal,
		answerFallbacks:   answerFallbacks,
		retrievedChunks:   retrievedChunks,
		answerDuration:    answerDuration,
		streamTokensTotal: streamTokensTotal,
		buildsTotal:       buildsTotal,
		buildChunksTotal:  buildChunksTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/jobs/"):
		return "/v1/jobs/{job_id}"
	case strings.HasPrefix(path, "/v1/corpora/"):
		return "/v1/corpora/{corpus_id}"
	default:
		return path
	}
}

// RecordAnswer counts one successful answer with its effective pipeline shape.
func (m *HTTPServerMetrics) RecordAnswer(service, endpoint, strategy, chain, fallback string, sourceCount int, duration time.Duration) {
	if strategy == "" {
		strategy = "unknown"
	}
	if chain == "" {
		chain = "unknown"
	}
	m.answersTotal.WithLabelValues(service, endpoint, strategy, chain).Inc()
	m.retrievedChunks.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.answerDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if fallback != "" {
		m.answerFallbacks.WithLabelValues(service, endpoint, fallback).Inc()
	}
}

func (m *HTTPServerMetrics) RecordStreamTokens(service string, tokens int) {
	if tokens <= 0 {
		return
	}
	m.streamTokensTotal.WithLabelValues(service).Add(float64(tokens))
}

func (m *HTTPServerMetrics) RecordBuild(service string, chunks int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.buildsTotal.WithLabelValues(service, status).Inc()
	if err == nil && chunks > 0 {
		m.buildChunksTotal.WithLabelValues(service).Add(float64(chunks))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
