package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request throughput and latency per route.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP server metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration, requests)
	return &HTTPMetrics{
		duration: duration,
		requests: requests,
	}
}

// Observe records one served request.
func (h *HTTPMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	method = normalizeLabel(method)
	route = normalizeLabel(route)
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// GatewayMetrics counts payment gateway sessions and callbacks.
type GatewayMetrics struct {
	sessions  *prometheus.CounterVec
	callbacks *prometheus.CounterVec
}

// NewGatewayMetrics registers payment gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_sessions_total",
		Help: "Gateway checkout sessions initiated, by outcome.",
	}, []string{"outcome"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_callbacks_total",
		Help: "Gateway callbacks received, by kind.",
	}, []string{"kind"})
	reg.MustRegister(sessions, callbacks)
	return &GatewayMetrics{
		sessions:  sessions,
		callbacks: callbacks,
	}
}

// IncSession counts an initiated checkout session by outcome (ok/error).
func (g *GatewayMetrics) IncSession(outcome string) {
	if g == nil || g.sessions == nil {
		return
	}
	g.sessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCallback counts a received gateway callback (success/fail/cancel/ipn).
func (g *GatewayMetrics) IncCallback(kind string) {
	if g == nil || g.callbacks == nil {
		return
	}
	g.callbacks.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
