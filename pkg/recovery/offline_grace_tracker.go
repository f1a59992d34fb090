package recovery

import (
	"time"
)

// OfflineGraceTracker counts consecutive transport errors and decides when
// the grace period since the first one has elapsed, so a transport that
// recovers within the window is never reported offline at all.
type OfflineGraceTracker struct {
	consecutiveErrors  int
	firstErrorTime     time.Time
	gracePeriod        time.Duration
	statusSetToOffline bool
}

// NewOfflineGraceTracker creates a tracker with the given grace period,
// defaulting to 15 seconds when gracePeriod is zero.
func NewOfflineGraceTracker(gracePeriod time.Duration) *OfflineGraceTracker {
	if gracePeriod == 0 {
		gracePeriod = 15 * time.Second
	}

	return &OfflineGraceTracker{
		gracePeriod: gracePeriod,
	}
}

// RecordError records a transport error and reports whether the grace
// period has now expired.
func (t *OfflineGraceTracker) RecordError() bool {
	t.consecutiveErrors++

	if t.firstErrorTime.IsZero() {
		t.firstErrorTime = time.Now()
	}

	return time.Since(t.firstErrorTime) >= t.gracePeriod
}

// RecordSuccess clears all error tracking after a successful transport
// operation.
func (t *OfflineGraceTracker) RecordSuccess() {
	t.consecutiveErrors = 0
	t.firstErrorTime = time.Time{}
	t.statusSetToOffline = false
}

// GetConsecutiveErrors returns the current run length of transport errors.
func (t *OfflineGraceTracker) GetConsecutiveErrors() int {
	return t.consecutiveErrors
}

// ShouldMarkOffline reports whether the grace period has elapsed and the
// transport hasn't already been marked offline for this error run.
func (t *OfflineGraceTracker) ShouldMarkOffline() bool {
	if t.statusSetToOffline {
		return false
	}

	if !t.firstErrorTime.IsZero() && time.Since(t.firstErrorTime) >= t.gracePeriod {
		return true
	}

	return false
}

// MarkAsOffline records that offline status has been reported, so
// ShouldMarkOffline doesn't fire again for the same error run.
func (t *OfflineGraceTracker) MarkAsOffline() {
	t.statusSetToOffline = true
}

// IsInGracePeriod reports whether the tracker is within the grace period
// following the first error of the current run.
func (t *OfflineGraceTracker) IsInGracePeriod() bool {
	if t.firstErrorTime.IsZero() {
		return false
	}
	return time.Since(t.firstErrorTime) < t.gracePeriod
}

// GetTimeSinceFirstError returns how long ago the current error run began.
func (t *OfflineGraceTracker) GetTimeSinceFirstError() time.Duration {
	if t.firstErrorTime.IsZero() {
		return 0
	}
	return time.Since(t.firstErrorTime)
}

// Reset clears all tracked state.
func (t *OfflineGraceTracker) Reset() {
	t.consecutiveErrors = 0
	t.firstErrorTime = time.Time{}
	t.statusSetToOffline = false
}
