// Package metrics provides Prometheus metric collectors for the catalog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics contains Prometheus metrics for species record operations
type CatalogMetrics struct {
	registry *prometheus.Registry

	// Record operation metrics
	recordOperationsTotal   *prometheus.CounterVec
	recordOperationDuration *prometheus.HistogramVec

	// Validation metrics
	validationFailuresTotal *prometheus.CounterVec

	// Submit guard metrics
	submitConflictsTotal prometheus.Counter

	collectors []prometheus.Collector
}

// NewCatalogMetrics creates and registers new catalog metrics
func NewCatalogMetrics(registry *prometheus.Registry) (*CatalogMetrics, error) {
	m := &CatalogMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *CatalogMetrics) initMetrics() {
	m.recordOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_record_operations_total",
			Help: "Total number of species record operations",
		},
		[]string{"operation", "status"}, // operation: create, get, list, update; status: success, validation_error, not_found, forbidden, conflict, error
	)

	m.recordOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_record_operation_duration_seconds",
			Help:    "Time taken for species record operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_validation_failures_total",
			Help: "Total number of field validation failures",
		},
		[]string{"field"},
	)

	m.submitConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_submit_conflicts_total",
			Help: "Total number of submits rejected because an update was already in flight",
		},
	)

	m.collectors = []prometheus.Collector{
		m.recordOperationsTotal,
		m.recordOperationDuration,
		m.validationFailuresTotal,
		m.submitConflictsTotal,
	}
}

// Describe implements the Collector interface
func (m *CatalogMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *CatalogMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records a species record operation outcome
func (m *CatalogMetrics) RecordOperation(operation, status string) {
	m.recordOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordOperationDuration records the duration of a species record operation
func (m *CatalogMetrics) RecordOperationDuration(operation string, duration float64) {
	m.recordOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordValidationFailure records a field validation failure
func (m *CatalogMetrics) RecordValidationFailure(field string) {
	m.validationFailuresTotal.WithLabelValues(field).Inc()
}

// RecordSubmitConflict records a submit rejected by the in-flight guard
func (m *CatalogMetrics) RecordSubmitConflict() {
	m.submitConflictsTotal.Inc()
}
