package promexport

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors for the benchmark history service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RequestDurationSec  *prometheus.HistogramVec
	RunsIngested        prometheus.Counter
	RunsRejected        prometheus.Counter
	RegressionsDetected *prometheus.CounterVec
	ExportsTotal        prometheus.Counter
	ImportsTotal        prometheus.Counter
	AuthFailures        prometheus.Counter
	RateLimitDropped    prometheus.Counter
	WebSocketClients    prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bench_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bench_request_duration_seconds",
			Help:    "Request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RunsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_runs_ingested_total",
			Help: "Total number of benchmark runs accepted.",
		}),
		RunsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_runs_rejected_total",
			Help: "Total number of benchmark runs rejected by validation or dedup.",
		}),
		RegressionsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bench_regressions_detected_total",
			Help: "Total number of regressions detected, by severity.",
		}, []string{"severity"}),
		ExportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_datafile_exports_total",
			Help: "Total number of data file exports.",
		}),
		ImportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_datafile_imports_total",
			Help: "Total number of data file imports.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bench_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bench_websocket_clients",
			Help: "Number of connected WebSocket clients.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RunsIngested,
		m.RunsRejected,
		m.RegressionsDetected,
		m.ExportsTotal,
		m.ImportsTotal,
		m.AuthFailures,
		m.RateLimitDropped,
		m.WebSocketClients,
	)

	return m
}

// Handler returns the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counters and durations per normalized route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/ws":
		return "/ws"
	case path == "/data.js":
		return "/data.js"
	case path == "/api/v1/runs" || hasPrefix(path, "/api/v1/runs/"):
		return "/api/v1/runs/*"
	case path == "/api/v1/trends" || hasPrefix(path, "/api/v1/trends/"):
		return "/api/v1/trends/*"
	case path == "/api/v1/datafile" || hasPrefix(path, "/api/v1/datafile/"):
		return "/api/v1/datafile/*"
	case path == "/api/v1" || hasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

func hasPrefix(value, prefix string) bool {
	if len(value) < len(prefix) {
		return false
	}
	return value[:len(prefix)] == prefix
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Push proxies HTTP/2 server push when available.
func (rw *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := rw.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
