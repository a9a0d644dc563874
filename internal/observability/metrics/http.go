package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for HTTP handler operations
type HTTPMetrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// SSE (Server-Sent Events) metrics
	sseActiveConnections prometheus.Gauge
	sseMessagesSent      *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.sseActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_active_connections",
			Help: "Current number of active SSE connections",
		},
	)

	m.sseMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_messages_sent_total",
			Help: "Total number of SSE messages sent",
		},
		[]string{"event_type"},
	)

	m.collectors = []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.sseActiveConnections,
		m.sseMessagesSent,
	}
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRequest records a completed HTTP request
func (m *HTTPMetrics) RecordRequest(method, path, statusCode string) {
	m.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
}

// RecordRequestDuration records the duration of an HTTP request
func (m *HTTPMetrics) RecordRequestDuration(method, path string, duration float64) {
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// SSEConnectionOpened increments the active SSE connection gauge
func (m *HTTPMetrics) SSEConnectionOpened() {
	m.sseActiveConnections.Inc()
}

// SSEConnectionClosed decrements the active SSE connection gauge
func (m *HTTPMetrics) SSEConnectionClosed() {
	m.sseActiveConnections.Dec()
}

// RecordSSEMessage records an SSE message sent to a client
func (m *HTTPMetrics) RecordSSEMessage(eventType string) {
	m.sseMessagesSent.WithLabelValues(eventType).Inc()
}
