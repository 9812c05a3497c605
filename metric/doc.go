// Package metric provides Prometheus-based metrics collection for the
// graph-data access layer.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (provider calls, composite fan-out, cache efficiency, source
// health, NATS connectivity) and component-specific metrics registered through
// the MetricsRegistrar interface.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	// Record core platform metrics
//	core := registry.CoreMetrics()
//	core.RecordProviderCall("dbpedia", "elements", "ok", 0.042)
//	core.RecordCacheLookup("elements", true)
//
//	// Expose them
//	router.Handle("/metrics", registry.Handler())
//
// # Core Metrics
//
//   - graphdata_provider_requests_total{provider,operation,status}
//   - graphdata_provider_duration_seconds{provider,operation}
//   - graphdata_composite_branch_duration_seconds{source,operation}
//   - graphdata_composite_branch_errors_total{source,operation}
//   - graphdata_cache_requests_total{operation,result}
//   - graphdata_cache_writes_total{operation}
//   - graphdata_cache_errors_total{operation,stage}
//   - graphdata_source_healthy{source}
//   - graphdata_nats_connected, graphdata_nats_reconnects_total
//
// # Component Metrics
//
// Components register their own collectors under a component name. Duplicate
// registrations are rejected with an invalid-class error:
//
//	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "my_hits_total", Help: "..."})
//	if err := registry.RegisterCounter("my-component", "my_hits_total", hits); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// MetricsRegistry is safe for concurrent use. Prometheus collectors are
// themselves concurrency-safe.
package metric
