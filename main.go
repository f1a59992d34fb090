package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"modbus-host/pkg/builder"
	"modbus-host/pkg/config"
	"modbus-host/pkg/logger"
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	configPath := ""
	for i, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Printf("Usage: %s [config_path]\n", os.Args[0])
			fmt.Printf("  config_path: path to the host configuration file (optional)\n")
			return
		} else if i == 0 {
			configPath = arg
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.LogError("configuration error: %v", err)
		os.Exit(1)
	}

	hostLogger := logger.NewHostLogger(&cfg.Logging)
	hostLogger.Info("logging initialized with level: %s", cfg.Logging.Level)

	app, err := builder.NewApplicationBuilder(cfg).Build()
	if err != nil {
		logger.LogError("application build error: %v", err)
		os.Exit(1)
	}

	if err := app.OpenConfiguredTransport(); err != nil {
		logger.LogError("transport open error: %v", err)
		os.Exit(1)
	}
	logger.LogInfo("transport %s opened", cfg.Transport.Type)

	if cfg.Metrics.Enabled {
		go func() {
			if err := app.Metrics.StartMetricsServer(cfg.Metrics.Port); err != nil {
				logger.LogError("metrics server error: %v", err)
			}
		}()
		logger.LogInfo("metrics server listening on :%d", cfg.Metrics.Port)
	}

	go func() {
		if err := app.HTTP.ListenAndServe(cfg.Server.JSONRPCHTTPPort); err != nil {
			logger.LogError("json-rpc http server error: %v", err)
			sigChan <- syscall.SIGTERM
		}
	}()
	logger.LogInfo("json-rpc http server listening on :%d", cfg.Server.JSONRPCHTTPPort)

	go func() {
		if err := app.HTTP.ListenAndServeHealth(cfg.Server.HealthPort); err != nil {
			logger.LogError("health http server error: %v", err)
			sigChan <- syscall.SIGTERM
		}
	}()
	logger.LogInfo("health server listening on :%d", cfg.Server.HealthPort)

	logger.LogInfo("modbus host started")

	<-sigChan
	logger.LogInfo("stop signal received, shutting down...")

	app.Shutdown()

	logger.LogInfo("modbus host stopped")
}
