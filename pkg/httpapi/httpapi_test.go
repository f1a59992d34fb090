package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"modbus-host/pkg/health"
	"modbus-host/pkg/host"
	"modbus-host/pkg/jsonrpc"
	"modbus-host/pkg/metrics"
	"modbus-host/pkg/pdu"
	"modbus-host/pkg/transport"
)

type loopStream struct {
	mu      sync.Mutex
	written [][]byte
	toRead  chan []byte
	closed  chan struct{}
}

func newLoopStream() *loopStream {
	return &loopStream{toRead: make(chan []byte, 8), closed: make(chan struct{})}
}

func (l *loopStream) Read(buf []byte) (int, error) {
	select {
	case chunk, ok := <-l.toRead:
		if !ok {
			return 0, io.EOF
		}
		return copy(buf, chunk), nil
	case <-l.closed:
		return 0, io.ErrClosedPipe
	}
}

func (l *loopStream) Write(p []byte) (int, error) {
	l.mu.Lock()
	l.written = append(l.written, append([]byte{}, p...))
	l.mu.Unlock()
	return len(p), nil
}

func (l *loopStream) Close() error {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := transport.NewManager()
	h := host.New(mgr, 200*time.Millisecond)

	stream := newLoopStream()
	session := mgr.NewSessionForTesting(pdu.Tcp, stream)
	h.SetActiveSessionForTesting(session, pdu.Tcp, host.TransportConfig{Host: "10.0.0.5", Port: 502})

	dispatcher := jsonrpc.New(h, metrics.NewNullMetrics())
	monitor := health.NewTransportHealthMonitor(15 * time.Second)
	monitor.RecordSuccess()

	return New(dispatcher, monitor, metrics.NewNullMetrics(), "test")
}

func TestJSONRPCEndpointHandlesPing(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))

	srv.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestJSONRPCEndpointRejectsGet(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	srv.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestJSONRPCEndpointHandlesOptionsPreflight(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)

	srv.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHealthEndpointReportsHealthyWhenOnline(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("expected healthy status, got %s", rec.Body.String())
	}
}

func TestHealthEndpointReportsUnhealthyWhenOffline(t *testing.T) {
	srv := newTestServer(t)
	srv.health.MarkOffline()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthMuxDoesNotServeJSONRPC(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))

	srv.HealthMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for / on the health-only mux, got %d", rec.Code)
	}
}

func TestJSONRPCMuxDoesNotServeHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.JSONRPCMux().ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("expected /health to miss on the JSON-RPC-only mux")
	}
}
