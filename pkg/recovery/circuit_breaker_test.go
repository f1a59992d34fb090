package recovery

import (
	"errors"
	"testing"
	"time"
)

func TestSendBreakerClosedPassesCallsThrough(t *testing.T) {
	cb := NewSendBreaker(SendBreakerConfig{MaxFailures: 3, Timeout: time.Second})

	calls := 0
	err := cb.Call(func() error { calls++; return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the function to run once, got %d", calls)
	}
	if cb.GetState() != BreakerClosed {
		t.Fatalf("expected breaker to stay closed, got %s", cb.GetState())
	}
}

func TestSendBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewSendBreaker(SendBreakerConfig{MaxFailures: 3, Timeout: time.Second})

	sendErr := errors.New("send failed")
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return sendErr }); err != sendErr {
			t.Fatalf("call %d: expected the send error through, got %v", i, err)
		}
	}

	if cb.GetState() != BreakerOpen {
		t.Fatalf("expected breaker to open after 3 failures, got %s", cb.GetState())
	}

	// The next call should fail fast without invoking fn.
	invoked := false
	err := cb.Call(func() error { invoked = true; return nil })
	if err == nil {
		t.Fatal("expected the open breaker to reject the call")
	}
	if invoked {
		t.Fatal("expected the open breaker to reject the call without invoking it")
	}
}

func TestSendBreakerHalfOpensAfterTimeoutAndClosesOnSuccess(t *testing.T) {
	cb := NewSendBreaker(SendBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond, HalfOpenMaxTries: 1})

	sendErr := errors.New("send failed")
	if err := cb.Call(func() error { return sendErr }); err != sendErr {
		t.Fatalf("expected the send error through, got %v", err)
	}
	if cb.GetState() != BreakerOpen {
		t.Fatalf("expected breaker to open, got %s", cb.GetState())
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected the half-open probe to succeed, got %v", err)
	}
	if cb.GetState() != BreakerClosed {
		t.Fatalf("expected breaker to close after a successful probe, got %s", cb.GetState())
	}
}

func TestSendBreakerReopensWhenProbeFails(t *testing.T) {
	cb := NewSendBreaker(SendBreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond, HalfOpenMaxTries: 1})

	sendErr := errors.New("send failed")
	_ = cb.Call(func() error { return sendErr })
	time.Sleep(30 * time.Millisecond)

	_ = cb.Call(func() error { return sendErr })
	if cb.GetState() != BreakerOpen {
		t.Fatalf("expected breaker to reopen after a failed probe, got %s", cb.GetState())
	}
}

func TestSendBreakerResetForcesClosed(t *testing.T) {
	cb := NewSendBreaker(SendBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	_ = cb.Call(func() error { return errors.New("fail") })
	if cb.GetState() != BreakerOpen {
		t.Fatalf("expected breaker to open, got %s", cb.GetState())
	}

	cb.Reset()
	if cb.GetState() != BreakerClosed || cb.GetFailures() != 0 {
		t.Fatalf("expected Reset to clear state, got state=%s failures=%d", cb.GetState(), cb.GetFailures())
	}
}
