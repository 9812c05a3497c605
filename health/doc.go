// Package health tracks the health of the data sources behind the gateway
// with thread-safe status tracking and aggregation.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: source answering normally
//   - Degraded: source answering too slowly
//   - Unhealthy: source failing
//
// # Core Components
//
// Status: Individual health state containing status level, descriptive message,
// timestamp, optional metrics, and hierarchical sub-statuses.
//
// Monitor: the latest status per source. Each update is folded into the
// source's history, so a stored status carries Metrics with the check latency,
// the run of consecutive failures, the last success and when the current state
// began.
//
// Prober: Runs a Probe per source, with a timeout, and writes the outcome into a
// Monitor. The gateway registers one probe per configured source.
//
// # Basic Usage
//
//	monitor := health.NewMonitor()
//	prober := health.NewProber(monitor, 2*time.Second, logger)
//
//	prober.Register("wikidata", func(ctx context.Context) error {
//	    _, err := remote.KnownLinkTypes(ctx)
//	    return err
//	})
//
//	go prober.Run(ctx, "graphdata", 30*time.Second)
//
//	// Later, from an HTTP handler
//	systemHealth := monitor.AggregateHealth("graphdata")
//	if systemHealth.IsUnhealthy() {
//	    w.WriteHeader(http.StatusServiceUnavailable)
//	}
//
// Statuses can also be set directly:
//
//	monitor.UpdateHealthy("cache", "Cache store reachable")
//	monitor.UpdateDegraded("remote", "Responses above latency budget")
//	monitor.UpdateUnhealthy("remote", "Connection refused")
//
// # Aggregation
//
// Aggregate follows worst-case rules: one unhealthy sub-status makes the whole
// system unhealthy, otherwise one degraded sub-status makes it degraded. The
// aggregate message names the failing sources, for example
// "Unhealthy: upstream; degraded: cache".
//
// # Security
//
// Error messages passed through FromProbe are sanitized to remove potentially
// sensitive information:
//
//	// Original error with sensitive data
//	err := "failed to connect to https://api.example.com/v1 with password=secret123"
//
//	// After sanitization via FromProbe
//	// "failed to connect to [URL] with [REDACTED]"
//
// Sanitization patterns:
//   - URLs: http://, https://, nats://, ws://, wss:// → [URL]
//   - File paths: /path/to/file, C:\path\to\file → [PATH]
//   - IP addresses: 192.168.1.100 → [IP]
//   - Ports: :8080 → :[PORT]
//   - Credentials: password=X, token=X, key=X, secret=X → [REDACTED]
//
// # Thread Safety
//
// Monitor and Prober are safe for concurrent use. Status values are immutable:
// WithMetrics returns a new copy.
//
// # Error Handling
//
// The health package does not return errors. A Status is the result of error
// handling, not part of error propagation.
package health
