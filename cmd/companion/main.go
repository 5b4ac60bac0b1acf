package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahulsiiitm/kaizen-eparchi/internal/api"
	"github.com/rahulsiiitm/kaizen-eparchi/internal/console"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/config"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/monitoring"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)

	// Initialize metrics and diagnostics when enabled
	var metrics *monitoring.MetricsCollector
	var diag *monitoring.DiagnosticsServer
	if cfg.Diagnostics.Enabled {
		metrics = monitoring.NewMetricsCollector()
	}

	// Initialize the backend client
	backend := api.New(cfg.Backend, appLogger, metrics)

	if cfg.Diagnostics.Enabled {
		health := monitoring.NewHealthManager("companion", serviceVersion)
		health.RegisterChecker("backend", &monitoring.BackendChecker{Ping: backend.Ping})

		diag = monitoring.NewDiagnosticsServer(
			cfg.Diagnostics.Host, cfg.Diagnostics.Port,
			cfg.Diagnostics.HealthPath, cfg.Diagnostics.MetricsPath,
			health, metrics,
		)
		go func() {
			appLogger.WithComponent("diagnostics").WithField("port", cfg.Diagnostics.Port).Info("Diagnostics server starting")
			if err := diag.Start(); err != nil {
				appLogger.WithComponent("diagnostics").WithError(err).Error("Diagnostics server stopped")
			}
		}()
	}

	// The console owns the terminal; cancel its context on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	app := console.New(backend, appLogger, metrics, cfg, os.Stdin, os.Stdout)
	if err := app.Run(ctx); err != nil {
		appLogger.WithError(err).Error("Console exited with error")
	}

	if diag != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := diag.Shutdown(shutdownCtx); err != nil {
			appLogger.WithComponent("diagnostics").WithError(err).Warn("Diagnostics shutdown failed")
		}
	}
}
