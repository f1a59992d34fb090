package builder

import (
	"testing"

	"modbus-host/pkg/config"
)

func testConfig(transportType string) *config.Config {
	cfg := &config.Config{
		Version:       "1.0",
		ReadTimeoutMs: 100,
		Transport:     config.TransportConfig{Type: transportType},
		Server:        config.ServerConfig{JSONRPCHTTPPort: 8080, HealthPort: 8081},
	}
	if transportType == "tcp" {
		cfg.Transport.TCP = config.TCPConfig{Host: "127.0.0.1", Port: 15020}
	}
	return cfg
}

func TestBuildFillsDefaultsWhenNothingSupplied(t *testing.T) {
	app, err := NewApplicationBuilder(testConfig("tcp")).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Manager == nil || app.Host == nil || app.Metrics == nil || app.Health == nil {
		t.Fatal("expected Build to fill in default Manager/Host/Metrics/Health")
	}
	if app.Dispatcher == nil || app.HTTP == nil {
		t.Fatal("expected Build to wire a Dispatcher and HTTP server")
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := NewApplicationBuilder(nil).Build(); err == nil {
		t.Fatal("expected an error when no config is supplied")
	}
}

func TestOpenConfiguredTransportRejectsUnknownType(t *testing.T) {
	app, err := NewApplicationBuilder(testConfig("bogus")).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if err := app.OpenConfiguredTransport(); err == nil {
		t.Fatal("expected an error for an unsupported transport type")
	}
}

func TestOpenConfiguredTransportMarksHealthOfflineOnFailure(t *testing.T) {
	cfg := testConfig("tcp")
	cfg.Transport.TCP.Port = 1 // nothing listens here; dial should fail fast
	app, err := NewApplicationBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	if err := app.OpenConfiguredTransport(); err == nil {
		t.Fatal("expected a dial error against a port nothing listens on")
	}
	if app.Health.IsOnline() {
		t.Fatal("expected health monitor to be marked offline after a failed open")
	}
}
