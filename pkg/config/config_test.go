package config

import "testing"

func TestLoadConfigFromStringTCP(t *testing.T) {
	yaml := `
version: "1.0"
transport:
  type: tcp
  tcp:
    host: 192.168.1.50
    port: 502
read_timeout_ms: 2000
server:
  jsonrpc_http_port: 8080
  health_port: 8081
metrics:
  enabled: true
  port: 9090
logging:
  level: info
`
	cfg, err := LoadConfigFromString(yaml)
	if err != nil {
		t.Fatalf("LoadConfigFromString: %v", err)
	}
	if cfg.Transport.Type != "tcp" || cfg.Transport.TCP.Host != "192.168.1.50" || cfg.Transport.TCP.Port != 502 {
		t.Errorf("unexpected transport: %+v", cfg.Transport)
	}
	if cfg.ReadTimeoutMs != 2000 {
		t.Errorf("expected ReadTimeoutMs 2000, got %d", cfg.ReadTimeoutMs)
	}
}

func TestLoadConfigFromStringRTU(t *testing.T) {
	yaml := `
transport:
  type: rtu
  rtu:
    serial_port: /dev/ttyUSB0
    baud: 9600
    stop_bits: 1
server:
  jsonrpc_http_port: 8080
  health_port: 8081
`
	cfg, err := LoadConfigFromString(yaml)
	if err != nil {
		t.Fatalf("LoadConfigFromString: %v", err)
	}
	if cfg.Transport.RTU.SerialPort != "/dev/ttyUSB0" || cfg.Transport.RTU.Baud != 9600 {
		t.Errorf("unexpected rtu config: %+v", cfg.Transport.RTU)
	}
	if cfg.ReadTimeoutMs != 2000 {
		t.Errorf("expected default ReadTimeoutMs 2000, got %d", cfg.ReadTimeoutMs)
	}
}

func TestValidateRejectsMissingTransportType(t *testing.T) {
	_, err := LoadConfigFromString(`
server:
  jsonrpc_http_port: 8080
  health_port: 8081
`)
	if err == nil {
		t.Fatal("expected error for missing transport.type")
	}
}

func TestValidateRejectsBadStopBits(t *testing.T) {
	_, err := LoadConfigFromString(`
transport:
  type: rtu
  rtu:
    serial_port: /dev/ttyUSB0
    baud: 9600
    stop_bits: 3
server:
  jsonrpc_http_port: 8080
  health_port: 8081
`)
	if err == nil {
		t.Fatal("expected error for invalid stop_bits")
	}
}

func TestValidateRejectsMissingServerPorts(t *testing.T) {
	_, err := LoadConfigFromString(`
transport:
  type: tcp
  tcp:
    host: 10.0.0.1
    port: 502
`)
	if err == nil {
		t.Fatal("expected error for missing server ports")
	}
}

func TestValidateRejectsMetricsEnabledWithoutPort(t *testing.T) {
	_, err := LoadConfigFromString(`
transport:
  type: tcp
  tcp:
    host: 10.0.0.1
    port: 502
server:
  jsonrpc_http_port: 8080
  health_port: 8081
metrics:
  enabled: true
`)
	if err == nil {
		t.Fatal("expected error for metrics enabled without port")
	}
}
