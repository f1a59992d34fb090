// Package health tracks transport online/offline status, fed by the outcome
// of opening the configured transport (builder.Application), and exposes the
// counters the HTTP /health endpoint reports.
package health

import (
	"sync"
	"time"

	"modbus-host/pkg/recovery"
)

// TransportHealthMonitor tracks transport online/offline status and
// integrates with the error recovery grace-period logic.
type TransportHealthMonitor struct {
	isOnline      bool
	lastErrorTime time.Time
	lastSuccess   time.Time
	errorCount    int
	successCount  int
	errorManager  *recovery.OfflineGraceTracker

	mu sync.RWMutex
}

// NewTransportHealthMonitor creates a new transport health monitor with
// the given grace period before a run of errors is reported offline.
func NewTransportHealthMonitor(gracePeriod time.Duration) *TransportHealthMonitor {
	return &TransportHealthMonitor{
		isOnline:     true,
		errorManager: recovery.NewOfflineGraceTracker(gracePeriod),
	}
}

// IsOnline returns whether the transport is currently marked as online.
func (m *TransportHealthMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// GetLastSuccessTime returns the time of the last successful read/write.
func (m *TransportHealthMonitor) GetLastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccess
}

// GetErrorCount returns the number of errors recorded since the last reset.
func (m *TransportHealthMonitor) GetErrorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorCount
}

// GetSuccessCount returns the number of successes recorded since the last reset.
func (m *TransportHealthMonitor) GetSuccessCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successCount
}

// RecordSuccess records a successful transport operation.
func (m *TransportHealthMonitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorManager.RecordSuccess()
	m.isOnline = true
	m.lastSuccess = time.Now()
	m.successCount++
}

// RecordError records a transport error and returns whether the grace
// period has expired and the transport should now be reported offline.
func (m *TransportHealthMonitor) RecordError() (shouldMarkOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastErrorTime = time.Now()
	m.errorCount++
	m.errorManager.RecordError()

	return m.errorManager.ShouldMarkOffline()
}

// MarkOffline explicitly marks the transport as offline.
func (m *TransportHealthMonitor) MarkOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isOnline = false
	m.errorManager.MarkAsOffline()
}

// MarkOnline explicitly marks the transport as online and resets error tracking.
func (m *TransportHealthMonitor) MarkOnline() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isOnline = true
	m.errorManager.Reset()
}

// GetConsecutiveErrors returns the current count of consecutive errors.
func (m *TransportHealthMonitor) GetConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.GetConsecutiveErrors()
}

// GetLastErrorTime returns the time of the last error.
func (m *TransportHealthMonitor) GetLastErrorTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErrorTime
}

// IsInGracePeriod returns true if currently in the error grace period.
func (m *TransportHealthMonitor) IsInGracePeriod() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.IsInGracePeriod()
}
