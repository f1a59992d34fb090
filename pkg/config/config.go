// Package config loads and validates the YAML configuration for the host
// process: which transport to use, read timeout, JSON-RPC/health server
// ports, metrics, and logging.
package config

import (
	"fmt"
	"os"

	"modbus-host/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration.
type Config struct {
	Version       string               `yaml:"version,omitempty"`
	Transport     TransportConfig      `yaml:"transport"`
	ReadTimeoutMs int                  `yaml:"read_timeout_ms"`
	Server        ServerConfig         `yaml:"server"`
	Metrics       MetricsConfig        `yaml:"metrics"`
	Logging       logger.LoggingConfig `yaml:"logging"`
}

// TransportConfig selects and configures the single active transport.
type TransportConfig struct {
	Type string    `yaml:"type"` // "tcp" or "rtu"
	TCP  TCPConfig `yaml:"tcp"`
	RTU  RTUConfig `yaml:"rtu"`
}

// TCPConfig configures a TCP Modbus transport.
type TCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RTUConfig configures a serial Modbus transport.
type RTUConfig struct {
	SerialPort string `yaml:"serial_port"`
	Baud       int    `yaml:"baud"`
	StopBits   int    `yaml:"stop_bits"`
}

// ServerConfig configures the JSON-RPC/HTTP surface.
type ServerConfig struct {
	JSONRPCHTTPPort int `yaml:"jsonrpc_http_port"`
	HealthPort      int `yaml:"health_port"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoadConfig loads configuration from configPath, falling back to a small
// list of well-known system locations when configPath is empty or unreadable.
func LoadConfig(configPath string) (*Config, error) {
	paths := []string{
		configPath,
		"/etc/modbus-host/config.yaml",
		"/etc/modbus-host.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - paths are from a hardcoded list of safe configuration file locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	cfg, err := LoadConfigFromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing configuration from %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s (version: %s)", usedPath, cfg.Version)
	return cfg, nil
}

// LoadConfigFromString parses configuration from a YAML string, mainly for tests.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(yamlContent), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if cfg.ReadTimeoutMs == 0 {
		cfg.ReadTimeoutMs = 2000
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Transport.Type {
	case "tcp":
		if c.Transport.TCP.Host == "" {
			return fmt.Errorf("transport.tcp.host is not specified")
		}
		if c.Transport.TCP.Port <= 0 {
			return fmt.Errorf("transport.tcp.port must be positive")
		}
	case "rtu":
		if c.Transport.RTU.SerialPort == "" {
			return fmt.Errorf("transport.rtu.serial_port is not specified")
		}
		if c.Transport.RTU.Baud <= 0 {
			return fmt.Errorf("transport.rtu.baud must be positive")
		}
		if c.Transport.RTU.StopBits != 1 && c.Transport.RTU.StopBits != 2 {
			return fmt.Errorf("transport.rtu.stop_bits must be 1 or 2")
		}
	case "":
		return fmt.Errorf("transport.type is not specified")
	default:
		return fmt.Errorf("transport.type must be 'tcp' or 'rtu', got %q", c.Transport.Type)
	}

	if c.ReadTimeoutMs <= 0 {
		return fmt.Errorf("read_timeout_ms must be positive")
	}

	if c.Server.JSONRPCHTTPPort <= 0 {
		return fmt.Errorf("server.jsonrpc_http_port must be positive")
	}
	if c.Server.HealthPort <= 0 {
		return fmt.Errorf("server.health_port must be positive")
	}

	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be positive when metrics are enabled")
	}

	return nil
}
