// Package httpapi is the thin HTTP binding over pkg/jsonrpc: a single
// POST endpoint carrying JSON-RPC 2.0 requests, with CORS headers so
// browser-based consoles can call it directly, plus /health. /metrics is
// served by the metrics collector's own server (StartMetricsServer), not here.
package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"modbus-host/pkg/health"
	"modbus-host/pkg/jsonrpc"
	"modbus-host/pkg/logger"
	"modbus-host/pkg/metrics"
)

// Server wraps the JSON-RPC dispatcher and the /health endpoint behind
// net/http.
type Server struct {
	dispatcher *jsonrpc.Dispatcher
	health     *health.TransportHealthMonitor
	metrics    metrics.MetricsCollector
	version    string
	startTime  time.Time
}

// New creates an httpapi.Server.
func New(dispatcher *jsonrpc.Dispatcher, monitor *health.TransportHealthMonitor, mc metrics.MetricsCollector, version string) *Server {
	return &Server{
		dispatcher: dispatcher,
		health:     monitor,
		metrics:    mc,
		version:    version,
		startTime:  time.Now(),
	}
}

// Mux builds the *http.ServeMux carrying both the JSON-RPC endpoint and
// /health, for callers (tests, mainly) that want everything on one
// listener. In production the two are split across jsonrpc_http_port and
// health_port, matching the teacher's separate health server.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleJSONRPC)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// JSONRPCMux serves only the JSON-RPC endpoint.
func (s *Server) JSONRPCMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleJSONRPC)
	return mux
}

// HealthMux serves only /health.
func (s *Server) HealthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe starts the JSON-RPC HTTP server on port with hardened
// timeouts against slow clients.
func (s *Server) ListenAndServe(port int) error {
	return hardenedServer(addr(port), s.JSONRPCMux()).ListenAndServe()
}

// ListenAndServeHealth starts the /health server on its own port.
func (s *Server) ListenAndServeHealth(port int) error {
	return hardenedServer(addr(port), s.HealthMux()).ListenAndServe()
}

func hardenedServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	w.Header().Set("Access-Control-Max-Age", "86400")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Only POST method is supported"}}`))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error: invalid JSON"}}`))
		return
	}

	response := s.dispatcher.HandleRaw(body)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(response); err != nil {
		logger.LogDebug("failed writing JSON-RPC response: %v", err)
	}
}

func addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
