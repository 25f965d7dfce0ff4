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

	answerOutcomeTotal *prometheus.CounterVec
	retrievalPathTotal *prometheus.CounterVec
	cacheLookupTotal   *prometheus.CounterVec
	retrievedPassages  *prometheus.HistogramVec
	answerDuration     *prometheus.HistogramVec
	llmTokensTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cchat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cchat",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerOutcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cchat",
			Subsystem: "rag",
			Name:      "answer_outcome_total",
			Help:      "Total answers by grounding outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievalPathTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cchat",
			Subsystem: "rag",
			Name:      "retrieval_path_total",
			Help:      "Total retrievals by path (vector or keyword fallback).",
		},
		[]string{"service", "path"},
	)
	cacheLookupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cchat",
			Subsystem: "rag",
			Name:      "cache_lookup_total",
			Help:      "Cache lookups by payload kind and result.",
		},
		[]string{"service", "kind", "result"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cchat",
			Subsystem: "rag",
			Name:      "retrieved_passages",
			Help:      "Distribution of retrieved passages per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cchat",
			Subsystem: "rag",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer synthesis duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cchat",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Reported token usage by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answerOutcomeTotal,
		retrievalPathTotal,
		cacheLookupTotal,
		retrievedPassages,
		answerDuration,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answerOutcomeTotal: answerOutcomeTotal,
		retrievalPathTotal: retrievalPathTotal,
		cacheLookupTotal:   cacheLookupTotal,
		retrievedPassages:  retrievedPassages,
		answerDuration:     answerDuration,
		llmTokensTotal:     llmTokensTotal,
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
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnswer(service, outcome string, passageCount int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answerOutcomeTotal.WithLabelValues(service, outcome).Inc()
	m.retrievedPassages.WithLabelValues(service).Observe(float64(passageCount))
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRetrievalPath(service, path string) {
	if path == "" {
		path = "unknown"
	}
	m.retrievalPathTotal.WithLabelValues(service, path).Inc()
}

func (m *HTTPServerMetrics) RecordCacheLookup(service, kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupTotal.WithLabelValues(service, kind, result).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out", model).Add(float64(completionTokens))
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
