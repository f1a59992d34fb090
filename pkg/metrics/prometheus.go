package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// PrometheusMetrics tracks application metrics in Prometheus format
type PrometheusMetrics struct {
	// Counters
	readsTotal      int64
	writesTotal     int64
	timeoutsTotal   int64
	exceptionsTotal int64

	// Gauges
	transportStatus int64 // 1 = active, 0 = inactive

	// Histograms (simplified - store sum and count for average)
	readDurationSum   float64
	readDurationCount int64

	mu sync.RWMutex
}

// NewPrometheusMetrics creates a new Prometheus metrics collector
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		transportStatus: 0, // Start as inactive, no transport opened yet
	}
}

// IncrementReads increments the successful-read counter
func (pm *PrometheusMetrics) IncrementReads() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.readsTotal++
}

// IncrementWrites increments the successful-write counter
func (pm *PrometheusMetrics) IncrementWrites() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.writesTotal++
}

// IncrementTimeouts increments the read-timeout counter
func (pm *PrometheusMetrics) IncrementTimeouts() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.timeoutsTotal++
}

// IncrementExceptions increments the slave-exception counter
func (pm *PrometheusMetrics) IncrementExceptions() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.exceptionsTotal++
}

// SetTransportStatus sets the transport status (1 = active, 0 = inactive)
func (pm *PrometheusMetrics) SetTransportStatus(online bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if online {
		pm.transportStatus = 1
	} else {
		pm.transportStatus = 0
	}
}

// ObserveReadDuration records a read's elapsed time
func (pm *PrometheusMetrics) ObserveReadDuration(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	seconds := duration.Seconds()
	pm.readDurationSum += seconds
	pm.readDurationCount++
}

// GetMetricsText returns metrics in Prometheus text format
func (pm *PrometheusMetrics) GetMetricsText() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var avgReadDuration float64
	if pm.readDurationCount > 0 {
		avgReadDuration = pm.readDurationSum / float64(pm.readDurationCount)
	}

	return fmt.Sprintf(`# HELP modbus_reads_total Total number of completed Modbus reads
# TYPE modbus_reads_total counter
modbus_reads_total %d

# HELP modbus_writes_total Total number of enqueued Modbus writes
# TYPE modbus_writes_total counter
modbus_writes_total %d

# HELP modbus_timeouts_total Total number of reads that timed out
# TYPE modbus_timeouts_total counter
modbus_timeouts_total %d

# HELP modbus_exceptions_total Total number of slave exception responses
# TYPE modbus_exceptions_total counter
modbus_exceptions_total %d

# HELP transport_status Current transport status (1 = active, 0 = inactive)
# TYPE transport_status gauge
transport_status %d

# HELP modbus_read_duration_seconds Average Modbus read duration in seconds
# TYPE modbus_read_duration_seconds gauge
modbus_read_duration_seconds %.6f

# HELP modbus_read_duration_count Total number of Modbus read duration observations
# TYPE modbus_read_duration_count counter
modbus_read_duration_count %d
`,
		pm.readsTotal,
		pm.writesTotal,
		pm.timeoutsTotal,
		pm.exceptionsTotal,
		pm.transportStatus,
		avgReadDuration,
		pm.readDurationCount,
	)
}

// ServeHTTP implements http.Handler interface for /metrics endpoint
func (pm *PrometheusMetrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, pm.GetMetricsText())
}

// StartMetricsServer starts an HTTP server on the given port to expose metrics
// Implements secure defaults with timeouts to prevent slowloris attacks
func (pm *PrometheusMetrics) StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", pm)
	addr := fmt.Sprintf(":%d", port)

	// Create server with secure timeout settings (gosec G114)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second, // Max time to read request
		ReadHeaderTimeout: 10 * time.Second, // Max time to read headers
		WriteTimeout:      15 * time.Second, // Max time to write response
		IdleTimeout:       60 * time.Second, // Max time for keep-alive connections
	}

	return server.ListenAndServe()
}

// GetStats returns current metric values
func (pm *PrometheusMetrics) GetStats() MetricStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var avgDuration float64
	if pm.readDurationCount > 0 {
		avgDuration = pm.readDurationSum / float64(pm.readDurationCount)
	}

	return MetricStats{
		ReadsTotal:        pm.readsTotal,
		WritesTotal:       pm.writesTotal,
		TimeoutsTotal:     pm.timeoutsTotal,
		ExceptionsTotal:   pm.exceptionsTotal,
		TransportActive:   pm.transportStatus == 1,
		AvgReadDuration:   avgDuration,
		ReadDurationCount: pm.readDurationCount,
	}
}

// MetricStats represents current metric statistics
type MetricStats struct {
	ReadsTotal        int64
	WritesTotal       int64
	TimeoutsTotal     int64
	ExceptionsTotal   int64
	TransportActive   bool
	AvgReadDuration   float64
	ReadDurationCount int64
}
