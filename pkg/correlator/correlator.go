// Package correlator matches inbound read responses to the caller that
// issued them. A facade issuing a read registers a PendingRead before
// writing the frame, then blocks until either a matching response arrives
// or the deadline passes. Only one read is assumed in flight per session;
// a response is always matched against the head of the FIFO, never by
// content.
package correlator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"modbus-host/pkg/pdu"
)

// ErrTimeout is returned by Wait when no response arrives before the
// deadline. The PendingRead is removed from the queue first, so a response
// that arrives after this point is delivered to the next waiter in line
// instead, or emitted as a standalone event if the queue is now empty.
var ErrTimeout = errors.New("correlator: timeout waiting for response")

// ModbusException reports a slave-returned exception response. The source
// correlator never completed a pending read on an exception, leaving the
// caller to time out instead; this implementation treats an exception as
// the response it is and completes the waiter with this error.
type ModbusException struct {
	Code byte
}

func (e *ModbusException) Error() string {
	return fmt.Sprintf("modbus exception 0x%02x", e.Code)
}

// Result is what a completed PendingRead resolves to.
type Result struct {
	SlaveID  uint8
	Address  uint16
	Count    uint16
	Function pdu.FunctionCode
	Values   []uint16
}

// PendingRead is a read awaiting its response. Token is unique for the
// lifetime of the process.
type PendingRead struct {
	Token   uint64
	SlaveID uint8
	Address uint16
	Count   uint16

	done chan struct{}
	res  Result
	err  error
}

// Correlator owns the FIFO of PendingReads for one transport.
type Correlator struct {
	nextToken uint64

	mu    sync.Mutex
	queue []*PendingRead
}

// New returns an empty correlator.
func New() *Correlator {
	return &Correlator{}
}

// Begin registers a PendingRead for a read about to be transmitted. The
// caller must write the frame itself; Begin only reserves the waiter's
// place in line.
func (c *Correlator) Begin(slaveID uint8, address, count uint16) *PendingRead {
	pr := &PendingRead{
		Token:   atomic.AddUint64(&c.nextToken, 1),
		SlaveID: slaveID,
		Address: address,
		Count:   count,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.queue = append(c.queue, pr)
	c.mu.Unlock()
	return pr
}

// Cancel removes pr from the queue if it is still pending. Call it after a
// failed send, or let Wait call it implicitly on timeout.
func (c *Correlator) Cancel(pr *PendingRead) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.queue {
		if q == pr {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// Wait blocks until pr is completed or timeout elapses. On timeout, pr is
// removed from the queue before returning ErrTimeout.
func (c *Correlator) Wait(pr *PendingRead, timeout time.Duration) (Result, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-pr.done:
		return pr.res, pr.err
	case <-timer.C:
		c.Cancel(pr)
		select {
		case <-pr.done:
			// Completed in the race window between the timer firing and
			// Cancel acquiring the lock.
			return pr.res, pr.err
		default:
			return Result{}, ErrTimeout
		}
	}
}

// Complete is called by the frame-delivery path with every decoded
// response. It reports whether resp completed the head PendingRead; when
// false, the caller should emit resp as a standalone event instead.
func (c *Correlator) Complete(resp pdu.Response) bool {
	if !resp.IsException && resp.Function != pdu.ReadHolding && resp.Function != pdu.ReadInput {
		return false // write confirmation: does not participate in correlation
	}

	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return false
	}
	pr := c.queue[0]
	c.queue = c.queue[1:]
	c.mu.Unlock()

	if resp.IsException {
		pr.err = &ModbusException{Code: resp.ExceptionCode}
	} else {
		pr.res = Result{
			SlaveID:  resp.SlaveID,
			Address:  pr.Address,
			Count:    pr.Count,
			Function: resp.Function,
			Values:   resp.Values,
		}
	}
	close(pr.done)
	return true
}

// Pending reports how many reads are currently queued, for diagnostics.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
