package metrics

import "time"

// NullMetrics is a zero-overhead no-op implementation of MetricsCollector.
// Use this when metrics are disabled (metrics.enabled: false) to avoid any
// performance overhead from metrics collection.
//
// All methods are no-ops and will be optimized away by the compiler.
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

// IncrementReads is a no-op
func (nm *NullMetrics) IncrementReads() {}

// IncrementWrites is a no-op
func (nm *NullMetrics) IncrementWrites() {}

// IncrementTimeouts is a no-op
func (nm *NullMetrics) IncrementTimeouts() {}

// IncrementExceptions is a no-op
func (nm *NullMetrics) IncrementExceptions() {}

// SetTransportStatus is a no-op
func (nm *NullMetrics) SetTransportStatus(online bool) {}

// ObserveReadDuration is a no-op
func (nm *NullMetrics) ObserveReadDuration(duration time.Duration) {}

// StartMetricsServer is a no-op (always returns nil)
func (nm *NullMetrics) StartMetricsServer(port int) error {
	return nil
}

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
