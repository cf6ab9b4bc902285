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

	"github.com/medassist/chat-backend/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	routeTotal         *prometheus.CounterVec
	fusedDocuments     *prometheus.HistogramVec
	streamOutcomeTotal *prometheus.CounterVec
	titleTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medassist",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	routeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "pipeline",
			Name:      "routes_total",
			Help:      "Total routing decisions by mode and domain collection.",
		},
		[]string{"service", "mode", "domain"},
	)
	fusedDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "pipeline",
			Name:      "fused_documents",
			Help:      "Distribution of documents kept after hybrid fusion.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	streamOutcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "pipeline",
			Name:      "stream_outcomes_total",
			Help:      "Total generation streams by terminal outcome.",
		},
		[]string{"service", "outcome"},
	)
	titleTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "pipeline",
			Name:      "titles_total",
			Help:      "Total conversation title generations by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		routeTotal,
		fusedDocuments,
		streamOutcomeTotal,
		titleTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		routeTotal:         routeTotal,
		fusedDocuments:     fusedDocuments,
		streamOutcomeTotal: streamOutcomeTotal,
		titleTotal:         titleTotal,
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
	if !strings.HasPrefix(path, "/api/conversations/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/api/conversations/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return "/api/conversations/{conversation_id}/" + rest[idx+1:]
	}
	return "/api/conversations/{conversation_id}"
}

// PipelineObserver returns the observer wired into the chat pipeline.
func (m *HTTPServerMetrics) PipelineObserver(service string) *PipelineMetrics {
	return &PipelineMetrics{metrics: m, service: service}
}

type PipelineMetrics struct {
	metrics *HTTPServerMetrics
	service string
}

func (p *PipelineMetrics) ObserveRoute(mode domain.RouteMode, label string) {
	if label == "" {
		label = "none"
	}
	p.metrics.routeTotal.WithLabelValues(p.service, string(mode), label).Inc()
}

func (p *PipelineMetrics) ObserveFusedContext(docs int) {
	p.metrics.fusedDocuments.WithLabelValues(p.service).Observe(float64(docs))
}

func (p *PipelineMetrics) ObserveStreamOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	p.metrics.streamOutcomeTotal.WithLabelValues(p.service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordTitleGeneration(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.titleTotal.WithLabelValues(service, status).Inc()
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
