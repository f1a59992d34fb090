// Package transport owns the live I/O streams (TCP socket, serial port)
// used by the host facade: it serializes outbound writes per session,
// pumps inbound bytes to a registered frame callback, and emits
// connect/disconnect lifecycle events. It holds no Modbus semantics of its
// own — framing and decoding are the codec's job.
package transport

import (
	"io"
	"sync"

	"modbus-host/pkg/pdu"
)

// FrameCallback is invoked for each chunk of bytes read off the wire. It
// receives raw bytes, not a parsed frame — multiple chunks may carry one
// logical frame, or one chunk may carry several; chunk boundaries carry no
// semantic meaning.
type FrameCallback func(chunk []byte, session *Session)

// ErrorCallback reports a session-level I/O error.
type ErrorCallback func(err error, session *Session)

const readBufferSize = 2048

// Session is a single live I/O stream, shared by reference between the
// Manager's registry and the host facade. Once closed it is removed from
// the registry; a facade-held reference to a closed session is stale but
// safe — sends and reads on it are silently dropped.
type Session struct {
	id             uint64
	connectionType pdu.ConnectionType
	stream         io.ReadWriteCloser

	onFrame FrameCallback
	onError ErrorCallback

	writeMu    sync.Mutex
	writeQueue [][]byte
	writing    bool

	closeMu sync.Mutex
	closed  bool

	done chan struct{}
}

func newSession(id uint64, connType pdu.ConnectionType, stream io.ReadWriteCloser) *Session {
	return &Session{
		id:             id,
		connectionType: connType,
		stream:         stream,
		done:           make(chan struct{}),
	}
}

// ID returns the session's monotonically increasing identifier.
func (s *Session) ID() uint64 { return s.id }

// ConnectionType reports whether this session is TCP or RTU.
func (s *Session) ConnectionType() pdu.ConnectionType { return s.connectionType }

// start begins the read loop on its own goroutine. onFrame is invoked for
// every chunk read; onError on the first I/O failure, after which the
// session marks itself closed and the read loop exits.
func (s *Session) start(onFrame FrameCallback, onError ErrorCallback) {
	s.onFrame = onFrame
	s.onError = onError
	go s.readLoop()
}

func (s *Session) readLoop() {
	defer close(s.done)
	buf := make([]byte, readBufferSize)

	for {
		if s.isClosed() {
			return
		}

		n, err := s.stream.Read(buf)
		if err != nil {
			if s.markClosed() && s.onError != nil {
				s.onError(err, s)
			}
			return
		}

		if n > 0 && s.onFrame != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onFrame(chunk, s)
		}
	}
}

// send enqueues data for write. Writes are serialized per session: at most
// one outstanding write at a time, subsequent writes wait in FIFO order.
func (s *Session) send(data []byte) {
	if len(data) == 0 || s.isClosed() {
		return
	}

	s.writeMu.Lock()
	inProgress := s.writing
	s.writeQueue = append(s.writeQueue, data)
	if !inProgress {
		s.writing = true
		s.writeMu.Unlock()
		go s.drainWriteQueue()
		return
	}
	s.writeMu.Unlock()
}

func (s *Session) drainWriteQueue() {
	for {
		s.writeMu.Lock()
		if len(s.writeQueue) == 0 {
			s.writing = false
			s.writeMu.Unlock()
			return
		}
		next := s.writeQueue[0]
		s.writeQueue = s.writeQueue[1:]
		s.writeMu.Unlock()

		if s.isClosed() {
			return
		}

		if _, err := s.stream.Write(next); err != nil {
			if s.markClosed() && s.onError != nil {
				s.onError(err, s)
			}
			return
		}
	}
}

// close is idempotent; after close, reads and writes are silently dropped
// and the read loop exits on its next I/O error.
func (s *Session) close() {
	if s.markClosed() {
		_ = s.stream.Close()
	}
}

func (s *Session) markClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Session) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}
