package transport

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"modbus-host/pkg/pdu"

	"github.com/hootrhino/goserial"
	"golang.org/x/sync/errgroup"
)

// Manager owns the session registry: opening and closing TCP/serial
// endpoints, exposing each as a Session, and fanning inbound bytes and
// lifecycle events out to callbacks set once during wiring.
type Manager struct {
	mu       sync.Mutex
	sessions map[uint64]*Session
	nextID   uint64

	onFrame      FrameCallback
	onConnection func(connected bool, session *Session)
	onError      func(err error)
}

// NewManager creates an empty session manager. Register callbacks with
// SetFrameCallback/SetConnectionCallback/SetErrorCallback before opening
// any session; callbacks are treated as immutable once wiring is done.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uint64]*Session),
	}
}

func (m *Manager) SetFrameCallback(cb FrameCallback)             { m.onFrame = cb }
func (m *Manager) SetConnectionCallback(cb func(bool, *Session)) { m.onConnection = cb }
func (m *Manager) SetErrorCallback(cb func(error))               { m.onError = cb }

// ConnectTCP synchronously dials host:port. On success the session is
// registered and its read pump started before Connected is emitted; on
// failure an error is returned and no event is emitted.
func (m *Manager) ConnectTCP(host string, port int) (*Session, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("tcp connect %s:%d: %w", host, port, err)
	}

	session := m.register(pdu.Tcp, conn)
	m.notifyConnected(session)
	return session, nil
}

// ConnectSerial opens a serial port configured for 8 data bits, no parity,
// and the given stop bits (1 or 2).
func (m *Manager) ConnectSerial(portName string, baud int, stopBits int) (*Session, error) {
	port, err := serial.Open(&serial.Config{
		Address:  portName,
		BaudRate: baud,
		DataBits: 8,
		StopBits: stopBits,
		Parity:   "N",
		Timeout:  0,
	})
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", portName, err)
	}

	session := m.register(pdu.Rtu, port)
	m.notifyConnected(session)
	return session, nil
}

// NewSessionForTesting constructs and registers a session backed by an
// arbitrary stream, bypassing the real dial/open calls in ConnectTCP and
// ConnectSerial. It exists for tests in other packages that need a
// Manager-managed session without a live socket or serial port.
func (m *Manager) NewSessionForTesting(connType pdu.ConnectionType, stream io.ReadWriteCloser) *Session {
	session := m.register(connType, stream)
	m.notifyConnected(session)
	return session
}

func (m *Manager) register(connType pdu.ConnectionType, stream io.ReadWriteCloser) *Session {
	id := atomic.AddUint64(&m.nextID, 1)
	session := newSession(id, connType, stream)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	session.start(m.onFrame, func(err error, s *Session) {
		m.handleSessionError(err, s)
	})
	return session
}

func (m *Manager) handleSessionError(err error, s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	if m.onError != nil {
		m.onError(err)
	}
	m.notifyDisconnected(s)
}

// SendTo enqueues data for session. If session is not (or no longer) in
// the registry, the send is rejected: an error event is emitted and an
// error is returned.
func (m *Manager) SendTo(session *Session, data []byte) error {
	if session == nil {
		if m.onError != nil {
			m.onError(fmt.Errorf("cannot send: session is nil"))
		}
		return fmt.Errorf("session is nil")
	}

	m.mu.Lock()
	_, ok := m.sessions[session.id]
	m.mu.Unlock()

	if !ok {
		err := fmt.Errorf("cannot send: session %d is not active", session.id)
		if m.onError != nil {
			m.onError(err)
		}
		return err
	}

	session.send(data)
	return nil
}

// DisconnectSession removes id from the registry, closes it, and emits
// Disconnected. A no-op if id is not registered.
func (m *Manager) DisconnectSession(id uint64) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	session.close()
	m.notifyDisconnected(session)
}

// DisconnectAll closes and unregisters every session. Each session is
// closed on its own goroutine, joined via errgroup so shutdown latency is
// bounded by the slowest close rather than their sum.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uint64]*Session)
	m.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			s.close()
			m.notifyDisconnected(s)
			return nil
		})
	}
	_ = g.Wait()
}

// HasActiveConnections reports whether any session is registered.
func (m *Manager) HasActiveConnections() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions) > 0
}

func (m *Manager) notifyConnected(s *Session) {
	if m.onConnection != nil {
		m.onConnection(true, s)
	}
}

func (m *Manager) notifyDisconnected(s *Session) {
	if m.onConnection != nil {
		m.onConnection(false, s)
	}
}
