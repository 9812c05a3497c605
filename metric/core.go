package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level graph-data metrics shared by every
// provider layer.
type Metrics struct {
	// Provider call metrics, recorded by the metrics interceptor
	ProviderRequests *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	// Composite fan-out metrics
	CompositeBranchDuration *prometheus.HistogramVec
	CompositeBranchErrors   *prometheus.CounterVec

	// Cached provider metrics
	CacheRequests *prometheus.CounterVec
	CacheWrites   *prometheus.CounterVec
	CacheErrors   *prometheus.CounterVec

	// Source health
	SourceHealth *prometheus.GaugeVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of data provider calls by outcome (ok, cancelled, backend_error, error)",
			},
			[]string{"provider", "operation", "status"},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "graphdata",
				Subsystem: "provider",
				Name:      "duration_seconds",
				Help:      "Data provider call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),

		CompositeBranchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "graphdata",
				Subsystem: "composite",
				Name:      "branch_duration_seconds",
				Help:      "Duration of one composite fan-out branch in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source", "operation"},
		),

		CompositeBranchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "composite",
				Name:      "branch_errors_total",
				Help:      "Total number of failed composite fan-out branches",
			},
			[]string{"source", "operation"},
		),

		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Cached provider key lookups by result (hit, miss)",
			},
			[]string{"operation", "result"},
		),

		CacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "cache",
				Name:      "writes_total",
				Help:      "Total number of entries written to the persistent cache",
			},
			[]string{"operation"},
		),

		CacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Persistent cache failures treated as misses",
			},
			[]string{"operation", "stage"},
		),

		SourceHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "graphdata",
				Subsystem: "source",
				Name:      "healthy",
				Help:      "Source health probe result (0=unhealthy, 1=healthy)",
			},
			[]string{"source"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "graphdata",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "graphdata",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordProviderCall records the outcome and duration of one provider call.
func (m *Metrics) RecordProviderCall(provider, operation, status string, seconds float64) {
	m.ProviderRequests.WithLabelValues(provider, operation, status).Inc()
	m.ProviderDuration.WithLabelValues(provider, operation).Observe(seconds)
}

// RecordCacheLookup counts one cache hit or miss.
func (m *Metrics) RecordCacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(operation, result).Inc()
}

// RecordSourceHealth sets the health gauge of a source.
func (m *Metrics) RecordSourceHealth(source string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.SourceHealth.WithLabelValues(source).Set(value)
}
