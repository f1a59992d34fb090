package transport

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"modbus-host/pkg/pdu"
)

// fakeStream is an in-memory ReadWriteCloser: writes go to an internal
// buffer the test can inspect, reads come from a channel of pre-queued
// chunks and then block until closed.
type fakeStream struct {
	mu      sync.Mutex
	written [][]byte
	toRead  chan []byte
	closed  chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		toRead: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) Read(buf []byte) (int, error) {
	select {
	case chunk, ok := <-f.toRead:
		if !ok {
			return 0, io.EOF
		}
		n := copy(buf, chunk)
		return n, nil
	case <-f.closed:
		return 0, io.ErrClosedPipe
	}
}

func (f *fakeStream) Write(p []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	f.mu.Lock()
	f.written = append(f.written, append([]byte{}, p...))
	f.mu.Unlock()
	return len(p), nil
}

func (f *fakeStream) Close() error {
	select {
	case <-f.closed:
		return nil
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeStream) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte{}, f.written...)
}

func TestSessionDeliversChunksToFrameCallback(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)

	got := make(chan []byte, 4)
	session.start(func(chunk []byte, s *Session) {
		got <- chunk
	}, nil)

	stream.toRead <- []byte{0xDE, 0xAD}
	stream.toRead <- []byte{0xBE, 0xEF}

	for i, want := range [][]byte{{0xDE, 0xAD}, {0xBE, 0xEF}} {
		select {
		case chunk := <-got:
			if !bytes.Equal(chunk, want) {
				t.Fatalf("chunk %d = %v, want %v", i, chunk, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for chunk %d", i)
		}
	}
}

func TestSessionWriteQueueIsFIFO(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)
	session.start(nil, nil)

	for i := 0; i < 5; i++ {
		session.send([]byte{byte(i)})
	}

	deadline := time.After(time.Second)
	for {
		if len(stream.writes()) == 5 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("writes did not settle, got %d", len(stream.writes()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	writes := stream.writes()
	for i, w := range writes {
		if len(w) != 1 || w[0] != byte(i) {
			t.Fatalf("write %d = %v, want [%d]", i, w, i)
		}
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)
	session.start(nil, nil)

	session.close()
	session.close()
	session.close()

	select {
	case <-stream.closed:
	default:
		t.Fatal("stream was not closed")
	}
}

func TestSessionIntentionalCloseDoesNotFireErrorCallback(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)

	errs := make(chan error, 1)
	session.start(nil, func(err error, s *Session) { errs <- err })

	session.close()

	select {
	case err := <-errs:
		t.Fatalf("unexpected error callback on intentional close: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionGenuineReadErrorFiresErrorCallbackOnce(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)

	var fireCount int
	var mu sync.Mutex
	done := make(chan struct{})
	session.start(nil, func(err error, s *Session) {
		mu.Lock()
		fireCount++
		mu.Unlock()
		close(done)
	})

	close(stream.toRead) // causes Read to return io.EOF, a genuine error

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("error callback never fired")
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fireCount != 1 {
		t.Fatalf("error callback fired %d times, want 1", fireCount)
	}
}

func TestSessionSendAfterCloseIsNoop(t *testing.T) {
	stream := newFakeStream()
	session := newSession(1, pdu.Tcp, stream)
	session.start(nil, nil)

	session.close()
	session.send([]byte{0x01})

	time.Sleep(20 * time.Millisecond)
	if len(stream.writes()) != 0 {
		t.Fatalf("write accepted after close: %v", stream.writes())
	}
}
