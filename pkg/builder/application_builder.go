// Package builder assembles the host process: transport manager, host
// facade, JSON-RPC dispatcher, and HTTP/metrics servers. It follows the
// Builder pattern so tests can substitute any layer without touching
// main.go's wiring order.
package builder

import (
	"fmt"
	"time"

	"modbus-host/pkg/config"
	"modbus-host/pkg/health"
	"modbus-host/pkg/host"
	"modbus-host/pkg/httpapi"
	"modbus-host/pkg/jsonrpc"
	"modbus-host/pkg/metrics"
	"modbus-host/pkg/pdu"
	"modbus-host/pkg/transport"
)

// Application bundles everything main.go needs to run and stop the process.
type Application struct {
	Config     *config.Config
	Manager    *transport.Manager
	Host       *host.Host
	Dispatcher *jsonrpc.Dispatcher
	HTTP       *httpapi.Server
	Metrics    metrics.MetricsCollector
	Health     *health.TransportHealthMonitor
}

// ApplicationBuilder provides a fluent interface for constructing an
// Application, filling in default implementations for anything not
// explicitly supplied.
type ApplicationBuilder struct {
	cfg     *config.Config
	mgr     *transport.Manager
	h       *host.Host
	mc      metrics.MetricsCollector
	monitor *health.TransportHealthMonitor

	errorGracePeriod time.Duration
}

// NewApplicationBuilder creates a builder for cfg.
func NewApplicationBuilder(cfg *config.Config) *ApplicationBuilder {
	return &ApplicationBuilder{
		cfg:              cfg,
		errorGracePeriod: 15 * time.Second,
	}
}

// WithManager overrides the transport manager.
func (b *ApplicationBuilder) WithManager(mgr *transport.Manager) *ApplicationBuilder {
	b.mgr = mgr
	return b
}

// WithHost overrides the host facade.
func (b *ApplicationBuilder) WithHost(h *host.Host) *ApplicationBuilder {
	b.h = h
	return b
}

// WithMetrics overrides the metrics collector.
func (b *ApplicationBuilder) WithMetrics(mc metrics.MetricsCollector) *ApplicationBuilder {
	b.mc = mc
	return b
}

// WithHealthMonitor overrides the health monitor.
func (b *ApplicationBuilder) WithHealthMonitor(monitor *health.TransportHealthMonitor) *ApplicationBuilder {
	b.monitor = monitor
	return b
}

// WithErrorGracePeriod sets how long a run of errors is tolerated before
// the health monitor reports the transport offline.
func (b *ApplicationBuilder) WithErrorGracePeriod(period time.Duration) *ApplicationBuilder {
	b.errorGracePeriod = period
	return b
}

// Build constructs the Application, creating default implementations for
// anything not supplied via With*.
func (b *ApplicationBuilder) Build() (*Application, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if b.mgr == nil {
		b.mgr = transport.NewManager()
	}

	if b.h == nil {
		readTimeout := time.Duration(b.cfg.ReadTimeoutMs) * time.Millisecond
		b.h = host.New(b.mgr, readTimeout)
	}

	if b.mc == nil {
		if b.cfg.Metrics.Enabled {
			b.mc = metrics.NewPrometheusMetrics()
		} else {
			b.mc = metrics.NewNullMetrics()
		}
	}

	if b.monitor == nil {
		b.monitor = health.NewTransportHealthMonitor(b.errorGracePeriod)
	}

	dispatcher := jsonrpc.New(b.h, b.mc)
	httpServer := httpapi.New(dispatcher, b.monitor, b.mc, b.cfg.Version)

	return &Application{
		Config:     b.cfg,
		Manager:    b.mgr,
		Host:       b.h,
		Dispatcher: dispatcher,
		HTTP:       httpServer,
		Metrics:    b.mc,
		Health:     b.monitor,
	}, nil
}

// OpenConfiguredTransport opens the transport named by app.Config.Transport
// and updates the health monitor and metrics collector to reflect the
// outcome.
func (app *Application) OpenConfiguredTransport() error {
	app.Host.SetEventCallback(func(resp pdu.Response) {})

	var err error
	switch app.Config.Transport.Type {
	case "tcp":
		err = app.Host.OpenTCP(app.Config.Transport.TCP.Host, app.Config.Transport.TCP.Port)
	case "rtu":
		err = app.Host.OpenRTU(app.Config.Transport.RTU.SerialPort, app.Config.Transport.RTU.Baud, app.Config.Transport.RTU.StopBits)
	default:
		return fmt.Errorf("unsupported transport type %q", app.Config.Transport.Type)
	}

	if err != nil {
		app.Health.MarkOffline()
		app.Metrics.SetTransportStatus(false)
		return err
	}

	app.Health.RecordSuccess()
	app.Metrics.SetTransportStatus(true)
	return nil
}

// Shutdown tears down every open transport session.
func (app *Application) Shutdown() {
	app.Manager.DisconnectAll()
}
