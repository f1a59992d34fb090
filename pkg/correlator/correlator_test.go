package correlator

import (
	"errors"
	"testing"
	"time"

	"modbus-host/pkg/pdu"
)

func TestCompleteWakesWaiterWithValues(t *testing.T) {
	c := New()
	pr := c.Begin(1, 100, 2)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Complete(pdu.Response{
			SlaveID:  1,
			Function: pdu.ReadHolding,
			Values:   []uint16{0x0A, 0x0B},
		})
	}()

	res, err := c.Wait(pr, time.Second)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(res.Values) != 2 || res.Values[0] != 0x0A || res.Values[1] != 0x0B {
		t.Fatalf("unexpected values: %v", res.Values)
	}
	if res.Address != 100 || res.Count != 2 {
		t.Fatalf("pending-read context not preserved: %+v", res)
	}
}

func TestCompleteWithExceptionCompletesWaiterAsError(t *testing.T) {
	c := New()
	pr := c.Begin(1, 0, 1)

	go c.Complete(pdu.Response{
		SlaveID:       1,
		Function:      pdu.FunctionCode(0x83),
		IsException:   true,
		ExceptionCode: 0x02,
	})

	_, err := c.Wait(pr, time.Second)
	if err == nil {
		t.Fatal("expected an error from an exception response")
	}
	var exc *ModbusException
	if !errors.As(err, &exc) {
		t.Fatalf("error is not a ModbusException: %v", err)
	}
	if exc.Code != 0x02 {
		t.Fatalf("exception code = %#x, want 0x02", exc.Code)
	}
}

func TestWriteConfirmationDoesNotCompletePendingRead(t *testing.T) {
	c := New()
	pr := c.Begin(1, 0, 1)

	completed := c.Complete(pdu.Response{SlaveID: 1, Function: pdu.WriteSingle})
	if completed {
		t.Fatal("write confirmation should not complete a pending read")
	}

	_, err := c.Wait(pr, 30*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitTimesOutAndRemovesFromQueue(t *testing.T) {
	c := New()
	pr := c.Begin(1, 0, 1)

	_, err := c.Wait(pr, 20*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if c.Pending() != 0 {
		t.Fatalf("pending queue not drained after timeout: %d", c.Pending())
	}

	// A late response now has nothing to match and should be reported as
	// not completing anything.
	completed := c.Complete(pdu.Response{SlaveID: 1, Function: pdu.ReadHolding, Values: []uint16{1}})
	if completed {
		t.Fatal("late response should have found an empty queue")
	}
}

func TestFIFOOrderMatchesHeadFirst(t *testing.T) {
	c := New()
	first := c.Begin(1, 0, 1)
	second := c.Begin(2, 10, 1)

	c.Complete(pdu.Response{SlaveID: 1, Function: pdu.ReadHolding, Values: []uint16{111}})
	c.Complete(pdu.Response{SlaveID: 2, Function: pdu.ReadHolding, Values: []uint16{222}})

	res1, err := c.Wait(first, time.Second)
	if err != nil || res1.Values[0] != 111 {
		t.Fatalf("first waiter got %v, %v", res1, err)
	}
	res2, err := c.Wait(second, time.Second)
	if err != nil || res2.Values[0] != 222 {
		t.Fatalf("second waiter got %v, %v", res2, err)
	}
}

func TestCancelRemovesPendingRead(t *testing.T) {
	c := New()
	pr := c.Begin(1, 0, 1)
	c.Cancel(pr)

	if c.Pending() != 0 {
		t.Fatalf("expected empty queue after cancel, got %d", c.Pending())
	}

	completed := c.Complete(pdu.Response{SlaveID: 1, Function: pdu.ReadHolding, Values: []uint16{1}})
	if completed {
		t.Fatal("cancelled read should not be completed")
	}
}
