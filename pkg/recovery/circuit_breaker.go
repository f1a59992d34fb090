package recovery

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the state of a transport-send breaker.
type BreakerState int

const (
	// BreakerClosed - sends pass through to the transport normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen - recent sends have failed repeatedly; further sends are
	// rejected without touching the transport.
	BreakerOpen
	// BreakerHalfOpen - the cool-down elapsed; a limited number of sends are
	// allowed through to probe whether the transport has recovered.
	BreakerHalfOpen
)

// String returns the wire-friendly representation of the breaker state, as
// surfaced by transport.status and the health endpoint.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// SendBreaker guards Host.sendCommand: once enough consecutive sends to the
// active transport fail, it trips open and rejects further sends fast
// instead of letting them queue up against a dead link.
type SendBreaker struct {
	// Configuration
	maxFailures      int           // sends that must fail before the breaker opens
	timeout          time.Duration // cool-down before a half-open probe is allowed
	halfOpenMaxTries int           // probe sends allowed while half-open

	// State
	state            BreakerState
	failures         int
	lastFailureTime  time.Time
	lastStateChange  time.Time
	halfOpenAttempts int

	mu sync.RWMutex
}

// SendBreakerConfig configures a SendBreaker. Zero values fall back to the
// defaults noted per field.
type SendBreakerConfig struct {
	MaxFailures      int           // Default: 5
	Timeout          time.Duration // Default: 30 seconds
	HalfOpenMaxTries int           // Default: 3
}

// NewSendBreaker creates a closed breaker with the given configuration.
func NewSendBreaker(config SendBreakerConfig) *SendBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxTries == 0 {
		config.HalfOpenMaxTries = 3
	}

	return &SendBreaker{
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxTries: config.HalfOpenMaxTries,
		state:            BreakerClosed,
		lastStateChange:  time.Now(),
	}
}

// Call runs fn if the breaker currently allows sends, and records the
// outcome against the breaker's state machine either way.
func (cb *SendBreaker) Call(fn func() error) error {
	if err := cb.beforeSend(); err != nil {
		return err
	}

	err := fn()
	cb.afterSend(err)
	return err
}

// beforeSend checks whether a send should be allowed through.
func (cb *SendBreaker) beforeSend() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return nil

	case BreakerOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = BreakerHalfOpen
			cb.halfOpenAttempts = 1 // this send is the first probe
			cb.lastStateChange = time.Now()
			return nil
		}
		return fmt.Errorf("transport send breaker is OPEN (failed %d times, waiting %.0fs)",
			cb.failures, time.Until(cb.lastFailureTime.Add(cb.timeout)).Seconds())

	case BreakerHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			return fmt.Errorf("transport send breaker is HALF-OPEN (max probe attempts reached)")
		}
		cb.halfOpenAttempts++
		return nil

	default:
		return fmt.Errorf("transport send breaker in unknown state")
	}
}

// afterSend records the outcome of a send that beforeSend let through.
func (cb *SendBreaker) afterSend(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onSendFailure()
	} else {
		cb.onSendSuccess()
	}
}

func (cb *SendBreaker) onSendFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case BreakerClosed:
		if cb.failures >= cb.maxFailures {
			cb.state = BreakerOpen
			cb.lastStateChange = time.Now()
		}

	case BreakerHalfOpen:
		// The probe send failed too - the transport is still down.
		cb.state = BreakerOpen
		cb.halfOpenAttempts = 0
		cb.lastStateChange = time.Now()
	}
}

func (cb *SendBreaker) onSendSuccess() {
	switch cb.state {
	case BreakerClosed:
		cb.failures = 0

	case BreakerHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			cb.state = BreakerClosed
			cb.failures = 0
			cb.halfOpenAttempts = 0
			cb.lastStateChange = time.Now()
		}
	}
}

// GetState returns the breaker's current state.
func (cb *SendBreaker) GetState() BreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetFailures returns the current consecutive-failure count.
func (cb *SendBreaker) GetFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// GetLastFailureTime returns the time of the last failed send.
func (cb *SendBreaker) GetLastFailureTime() time.Time {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.lastFailureTime
}

// GetTimeSinceLastStateChange returns how long the breaker has held its
// current state.
func (cb *SendBreaker) GetTimeSinceLastStateChange() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return time.Since(cb.lastStateChange)
}

// IsOpen reports whether sends are currently being rejected.
func (cb *SendBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == BreakerOpen
}

// IsClosed reports whether sends are passing through normally.
func (cb *SendBreaker) IsClosed() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == BreakerClosed
}

// IsHalfOpen reports whether the breaker is currently probing recovery.
func (cb *SendBreaker) IsHalfOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == BreakerHalfOpen
}

// Reset forces the breaker back to closed, clearing failure history.
func (cb *SendBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = BreakerClosed
	cb.failures = 0
	cb.halfOpenAttempts = 0
	cb.lastStateChange = time.Now()
}

// GetStats returns a snapshot of the breaker's state for diagnostics.
func (cb *SendBreaker) GetStats() SendBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return SendBreakerStats{
		State:                    cb.state,
		Failures:                 cb.failures,
		LastFailureTime:          cb.lastFailureTime,
		LastStateChange:          cb.lastStateChange,
		HalfOpenAttempts:         cb.halfOpenAttempts,
		TimeSinceLastStateChange: time.Since(cb.lastStateChange),
	}
}

// SendBreakerStats is a point-in-time snapshot of a SendBreaker.
type SendBreakerStats struct {
	State                    BreakerState
	Failures                 int
	LastFailureTime          time.Time
	LastStateChange          time.Time
	HalfOpenAttempts         int
	TimeSinceLastStateChange time.Duration
}

// String renders the snapshot for log lines.
func (s SendBreakerStats) String() string {
	return fmt.Sprintf("State: %s, Failures: %d, Last Failure: %s ago, Last State Change: %s ago",
		s.State,
		s.Failures,
		time.Since(s.LastFailureTime).Round(time.Second),
		s.TimeSinceLastStateChange.Round(time.Second))
}
