package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kompanion-sync/internal/api"
	"kompanion-sync/internal/challenge"
	"kompanion-sync/internal/config"
	"kompanion-sync/internal/notify"
	"kompanion-sync/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting kompanion-sync",
		"api_base_url", cfg.APIBaseURL,
		"database", cfg.DatabasePath,
		"poll_interval", cfg.PollInterval.String(),
		"log_level", cfg.LogLevel)

	// Open database
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		logger.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	logger.Info("Database opened successfully")

	// In daemon mode notifications go to the log; there is no UI to
	// surface toasts
	notifier := notify.NewLogger(logger)

	// Create API client
	client := api.NewClient(cfg.APIBaseURL, db, notifier, cfg.HTTPTimeout)

	// An unrecoverable auth failure ends the session. The tokens are
	// already cleared; all the daemon can do is stop and tell the
	// operator where to sign in again.
	sessionExpired := make(chan struct{}, 1)
	client.SetSessionExpiredHook(func() {
		logger.Error("Session expired, sign in again to obtain new tokens", "login_url", cfg.LoginURL)
		select {
		case sessionExpired <- struct{}{}:
		default:
		}
	})

	// Create challenge store and start the event poll loop
	store := challenge.NewStore(client, notifier, db, cfg.PollInterval)

	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()

	store.StartPolling(pollCtx)

	// Start metrics server if enabled
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := db.Health(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort)
		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}

		go func() {
			logger.Info("Metrics server listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Wait for interrupt signal or an unrecoverable session failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully...")
	case <-sessionExpired:
		logger.Info("Shutting down after session expiry...")
	}

	// Stop polling and wait for the loop to exit
	store.StopPolling()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("Stopped")
}
