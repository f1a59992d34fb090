// Package host is the public facade over the transport, framer, and
// correlator: open/close/switch the active transport, issue reads and
// writes, and receive standalone events for frames that complete no
// pending read. At most one transport is active at a time.
package host

import (
	"fmt"
	"sync"
	"time"

	"modbus-host/pkg/correlator"
	hosterrors "modbus-host/pkg/errors"
	"modbus-host/pkg/framer"
	"modbus-host/pkg/logger"
	"modbus-host/pkg/pdu"
	"modbus-host/pkg/recovery"
	"modbus-host/pkg/serialenum"
	"modbus-host/pkg/transport"
)

// ConnectionKind mirrors pdu.ConnectionType at the facade boundary so
// callers outside pkg/pdu don't need to import it just to open a
// transport.
type ConnectionKind = pdu.ConnectionType

const (
	KindTCP = pdu.Tcp
	KindRTU = pdu.Rtu
)

// TransportConfig is a snapshot of the currently (or most recently)
// configured transport. Fields not relevant to Type are zero.
type TransportConfig struct {
	Type       ConnectionKind
	Host       string
	Port       int
	SerialPort string
	BaudRate   int
	StopBits   int
	Active     bool
}

// EventCallback receives every decoded response that did not complete a
// pending read — typically write confirmations and exceptions arriving
// with no correlator waiter left for them.
type EventCallback func(resp pdu.Response)

// Host is the facade a JSON-RPC or other thin transport-level API
// dispatches onto.
type Host struct {
	mgr *transport.Manager

	configMu sync.Mutex
	config   TransportConfig
	session  *transport.Session
	framer   framer.Framer

	// sendMu serializes the full Begin-send-Wait sequence of a read so two
	// concurrent callers (the JSON-RPC dispatcher runs one goroutine per
	// HTTP request) can never interleave: without this, a second read's
	// Begin+send could land while the first read is still head-of-queue in
	// the correlator, and Complete would hand the first caller's waiter the
	// second caller's response data.
	sendMu sync.Mutex

	correlator *correlator.Correlator
	breaker    *recovery.SendBreaker

	defaultTimeout time.Duration
	onEvent        EventCallback
	log            logger.EventLogger
}

// New wires a Host around an already-constructed transport.Manager.
// defaultTimeout is used by Read/ReadGroup when no per-call timeout is
// given.
func New(mgr *transport.Manager, defaultTimeout time.Duration) *Host {
	h := &Host{
		mgr:        mgr,
		correlator: correlator.New(),
		breaker: recovery.NewSendBreaker(recovery.SendBreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		defaultTimeout: defaultTimeout,
		log:            logger.NewGlobalEventLogger(),
	}
	mgr.SetFrameCallback(h.onFrame)
	mgr.SetConnectionCallback(h.onConnection)
	return h
}

// SetEventLogger overrides the default global-log-backed EventLogger, for
// tests that want to assert on what the host reported.
func (h *Host) SetEventLogger(l logger.EventLogger) {
	h.log = l
}

// SetEventCallback registers the sink for frames that don't complete a
// pending read. Must be called before traffic starts flowing to avoid
// dropping early events.
func (h *Host) SetEventCallback(cb EventCallback) {
	h.onEvent = cb
}

// SetActiveSessionForTesting installs session as the active transport
// without dialing, for tests that need a Host wired to a fake stream
// registered via transport.Manager.NewSessionForTesting.
func (h *Host) SetActiveSessionForTesting(session *transport.Session, connType pdu.ConnectionType, cfg TransportConfig) {
	h.configMu.Lock()
	h.session = session
	h.framer = framer.New(connType)
	cfg.Type = connType
	cfg.Active = true
	h.config = cfg
	h.configMu.Unlock()
}

// OpenTCP dials host:port and makes the resulting session the active
// transport, replacing none — callers must CloseActive first if one is
// already open.
func (h *Host) OpenTCP(addr string, port int) error {
	session, err := h.mgr.ConnectTCP(addr, port)
	if err != nil {
		h.log.LogError("tcp open to %s:%d failed: %v", addr, port, err)
		return hosterrors.NewTransportError("open", err, "tcp", fmt.Sprintf("%s:%d", addr, port))
	}

	h.configMu.Lock()
	h.session = session
	h.framer = framer.New(pdu.Tcp)
	h.config = TransportConfig{Type: pdu.Tcp, Host: addr, Port: port, Active: true}
	h.configMu.Unlock()
	h.log.LogInfo("tcp transport opened to %s:%d", addr, port)
	return nil
}

// OpenRTU opens a serial port at baud with the given stop bits (1 or 2)
// and makes it the active transport.
func (h *Host) OpenRTU(portName string, baud, stopBits int) error {
	session, err := h.mgr.ConnectSerial(portName, baud, stopBits)
	if err != nil {
		h.log.LogError("rtu open on %s failed: %v", portName, err)
		return hosterrors.NewTransportError("open", err, "rtu", portName)
	}

	h.configMu.Lock()
	h.session = session
	h.framer = framer.New(pdu.Rtu)
	h.config = TransportConfig{Type: pdu.Rtu, SerialPort: portName, BaudRate: baud, StopBits: stopBits, Active: true}
	h.configMu.Unlock()
	h.log.LogInfo("rtu transport opened on %s at %d baud", portName, baud)
	return nil
}

// CloseActive tears down the active transport, if any, and returns a
// snapshot of what was closed. ok is false when nothing was active.
func (h *Host) CloseActive() (closed TransportConfig, ok bool) {
	h.configMu.Lock()
	snapshot := h.config
	session := h.session
	h.configMu.Unlock()

	if !snapshot.Active {
		return TransportConfig{}, false
	}

	if session != nil {
		h.mgr.DisconnectSession(session.ID())
	}

	h.configMu.Lock()
	h.config.Active = false
	h.session = nil
	h.configMu.Unlock()

	h.log.LogInfo("transport closed")
	return snapshot, true
}

// Switch closes whatever transport is active (if any) and opens target,
// returning the descriptor of what was closed alongside any open error.
func (h *Host) Switch(target TransportConfig) (closed TransportConfig, closedOk bool, err error) {
	closed, closedOk = h.CloseActive()

	if target.Type == pdu.Tcp {
		err = h.OpenTCP(target.Host, target.Port)
	} else {
		err = h.OpenRTU(target.SerialPort, target.BaudRate, target.StopBits)
	}
	return closed, closedOk, err
}

// Status reports the current transport configuration, active or not.
func (h *Host) Status() TransportConfig {
	h.configMu.Lock()
	defer h.configMu.Unlock()
	return h.config
}

// ListSerialPorts delegates to the platform-specific serial port
// enumerator.
func (h *Host) ListSerialPorts() []string {
	return serialenum.List()
}

// Read issues a read and blocks until the response arrives or timeout
// elapses. timeout of 0 uses the host's default.
func (h *Host) Read(slaveID uint8, address, count uint16, input bool, timeout time.Duration) (correlator.Result, error) {
	function := pdu.ReadHolding
	if input {
		function = pdu.ReadInput
	}
	return h.sendReadAndWait(pdu.Request{
		SlaveID:      slaveID,
		Function:     function,
		StartAddress: address,
		Count:        count,
	}, timeout)
}

// ReadGroup issues each request in order, waiting for each to complete
// before issuing the next — the correlator assumes one in-flight read at
// a time. The first failure aborts the remaining requests.
func (h *Host) ReadGroup(requests []pdu.Request, timeout time.Duration) ([]correlator.Result, error) {
	results := make([]correlator.Result, 0, len(requests))
	for i, req := range requests {
		res, err := h.sendReadAndWait(req, timeout)
		if err != nil {
			return results, fmt.Errorf("request %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// WriteSingle writes one register and returns once the bytes are
// enqueued for transmission — it does not wait for a confirmation.
func (h *Host) WriteSingle(slaveID uint8, address, value uint16) error {
	return h.sendCommand(pdu.Request{
		SlaveID:      slaveID,
		Function:     pdu.WriteSingle,
		StartAddress: address,
		Values:       []uint16{value},
	})
}

// WriteMultiple writes a contiguous block of registers.
func (h *Host) WriteMultiple(slaveID uint8, address uint16, values []uint16) error {
	if len(values) == 0 {
		return fmt.Errorf("values are empty")
	}
	return h.sendCommand(pdu.Request{
		SlaveID:      slaveID,
		Function:     pdu.WriteMultiple,
		StartAddress: address,
		Count:        uint16(len(values)),
		Values:       values,
	})
}

// WriteGroup enqueues each write request in order.
func (h *Host) WriteGroup(requests []pdu.Request) error {
	for i, req := range requests {
		if err := h.sendCommand(req); err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
	}
	return nil
}

// sendCommand transmits req through the send breaker: once enough
// consecutive sends have failed the breaker trips and further sends fail
// fast without touching the transport.
func (h *Host) sendCommand(req pdu.Request) error {
	return h.breaker.Call(func() error { return h.doSend(req) })
}

func (h *Host) doSend(req pdu.Request) error {
	h.configMu.Lock()
	session := h.session
	connType := h.config.Type
	active := h.config.Active
	h.configMu.Unlock()

	if !active || session == nil {
		return hosterrors.NewTransportError("send", fmt.Errorf("no active transport session"), "", "")
	}

	var frame []byte
	if connType == pdu.Tcp {
		frame = pdu.EncodeTCP(req, 1)
	} else {
		frame = pdu.EncodeRTU(req)
	}

	return h.mgr.SendTo(session, frame)
}

// BreakerState reports the send breaker's current state, for the
// JSON-RPC transport.status method and the /health endpoint.
func (h *Host) BreakerState() recovery.BreakerState {
	return h.breaker.GetState()
}

// sendReadAndWait issues req and blocks for its matching response. The
// entire Begin->sendCommand->Wait sequence runs under sendMu: the
// correlator assumes one in-flight read at a time, matching inbound frames
// against the head of its FIFO, so two reads racing to Begin+send without
// this lock could have goroutine B's response handed to goroutine A's
// waiter. Holding sendMu for the full call makes concurrent modbus.read /
// modbus.read_group calls from the HTTP dispatcher queue instead of
// interleaving.
func (h *Host) sendReadAndWait(req pdu.Request, timeout time.Duration) (correlator.Result, error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if timeout <= 0 {
		timeout = h.defaultTimeout
	}

	pr := h.correlator.Begin(req.SlaveID, req.StartAddress, req.Count)
	if err := h.sendCommand(req); err != nil {
		h.correlator.Cancel(pr)
		return correlator.Result{}, err
	}

	res, err := h.correlator.Wait(pr, timeout)
	if err != nil {
		return res, translateCorrelatorError(err, req)
	}
	return res, nil
}

// translateCorrelatorError maps the correlator's untyped sentinel errors
// onto the host's diagnostic error types so upstream dispatchers can pull a
// diagnostic code via errors.GetDiagnosticCode.
func translateCorrelatorError(err error, req pdu.Request) error {
	if err == correlator.ErrTimeout {
		return hosterrors.NewTimeoutError(req.SlaveID, req.StartAddress, req.Count)
	}
	if exc, ok := err.(*correlator.ModbusException); ok {
		return hosterrors.NewModbusError("read", exc, req.SlaveID, uint8(req.Function), req.StartAddress)
	}
	return err
}

func (h *Host) onFrame(chunk []byte, session *transport.Session) {
	h.configMu.Lock()
	f := h.framer
	active := h.session
	h.configMu.Unlock()

	if f == nil || active != session {
		return
	}

	for _, resp := range f.Feed(chunk) {
		if !h.correlator.Complete(resp) && h.onEvent != nil {
			h.onEvent(resp)
		}
	}
}

func (h *Host) onConnection(connected bool, session *transport.Session) {
	if connected {
		return
	}

	h.configMu.Lock()
	wasActive := h.session == session
	if wasActive {
		h.config.Active = false
		h.session = nil
	}
	h.configMu.Unlock()

	if wasActive {
		h.log.LogWarn("transport session lost")
	}
}
