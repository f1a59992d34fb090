package metrics

import "time"

// MetricsCollector defines the interface for collecting application metrics.
// This abstraction allows for different implementations (e.g., Prometheus, StatsD, NullMetrics)
// and follows the Dependency Inversion Principle.
//
// Implementations:
//   - PrometheusMetrics: Full-featured Prometheus metrics with HTTP server
//   - NullMetrics: Zero-overhead no-op implementation when metrics are disabled
type MetricsCollector interface {
	// IncrementReads increments the counter for successful Modbus reads
	IncrementReads()

	// IncrementWrites increments the counter for successful Modbus writes
	IncrementWrites()

	// IncrementTimeouts increments the counter for reads that timed out
	// waiting for a response
	IncrementTimeouts()

	// IncrementExceptions increments the counter for slave-returned
	// exception responses
	IncrementExceptions()

	// SetTransportStatus sets the current transport connection status
	// Parameters:
	//   - online: true if a transport is active, false otherwise
	SetTransportStatus(online bool)

	// ObserveReadDuration records the duration of a completed read,
	// from issue to either a response or a timeout.
	ObserveReadDuration(duration time.Duration)

	// StartMetricsServer starts an HTTP server to expose metrics (optional for some implementations)
	// Parameters:
	//   - port: HTTP port to listen on (NullMetrics ignores it)
	// Returns:
	//   - error: nil on success, error if server fails to start
	StartMetricsServer(port int) error
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
