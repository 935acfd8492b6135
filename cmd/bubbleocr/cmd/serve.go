package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbleocr/internal/config"
	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/metrics"
	"github.com/MeKo-Tech/bubbleocr/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for OCR API",
	Long: `Start an HTTP server that runs the configured engine.

The server provides the following endpoints:
  GET  /             - Status (engine, requests processed, cache size)
  GET  /health       - Health check endpoint
  GET  /engines      - List registered engines
  POST /ocr          - Recognize an uploaded image (multipart "image" or raw body)
  POST /cache/purge  - Drop cached results
  GET  /ws/ocr       - WebSocket: binary image frames in, JSON results out
  GET  /metrics      - Prometheus metrics

Examples:
  bubbleocr serve
  bubbleocr serve --port 8080 --engine lens
  bubbleocr serve --host 0.0.0.0 --requests-per-minute 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 60, "per-request OCR timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Int("cache-size", 256, "number of cached results (0 disables the cache)")
	serveCmd.Flags().Int("requests-per-minute", 0, "per-client request limit (0 disables)")
	serveCmd.Flags().Int("max-data-per-day", 0, "per-client upload quota in MB per day (0 disables)")

	bindFlags(serveCmd, map[string]string{
		"server.host":                "host",
		"server.port":                "port",
		"server.cors_origin":         "cors-origin",
		"server.max_upload_mb":       "max-upload-size",
		"server.timeout_sec":         "timeout",
		"server.shutdown_timeout":    "shutdown-timeout",
		"server.cache_size":          "cache-size",
		"server.requests_per_minute": "requests-per-minute",
		"server.max_data_per_day_mb": "max-data-per-day",
	})
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		CORSOrigin:        cfg.Server.CORSOrigin,
		MaxUploadMB:       int64(cfg.Server.MaxUploadMB),
		TimeoutSec:        cfg.Server.TimeoutSec,
		CacheSize:         cfg.Server.CacheSize,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		MaxDataPerDayMB:   int64(cfg.Server.MaxDataPerDayMB),
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := metrics.New(reg)
	logger := slog.Default()

	eng, err := engine.New(ctx, cfg.Engine, cfg.EngineConfig(),
		engine.WithLogger(logger),
		engine.WithObserver(obs))
	if err != nil {
		return err
	}

	srvCfg := serverConfig(cfg)
	srv, err := server.NewServer(eng, srvCfg,
		server.WithLogger(logger),
		server.WithRegistry(reg),
		server.WithMetrics(obs))
	if err != nil {
		_ = engine.Close(eng)
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("Error closing server", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              srvCfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting OCR server", "addr", httpServer.Addr, "engine", eng.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
