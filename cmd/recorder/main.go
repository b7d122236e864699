// recorder runs the realtime client as a daemon and archives every received
// event into TimescaleDB, exposing Prometheus metrics and a health endpoint.
// Usage: go run ./cmd/recorder --config configs/recorder.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/agisfl/realtime-client/internal/auth"
	"github.com/agisfl/realtime-client/internal/config"
	"github.com/agisfl/realtime-client/internal/database"
	"github.com/agisfl/realtime-client/internal/metrics"
	"github.com/agisfl/realtime-client/internal/realtime"
	"github.com/agisfl/realtime-client/internal/recorder"
	"github.com/agisfl/realtime-client/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Realtime.DebugLogging {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if !cfg.Recorder.Enabled {
		logger.Error("recorder is disabled in config; set recorder.enabled: true")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Metrics registry and client instrumentation
	registry := prometheus.NewRegistry()
	clientMetrics := metrics.New(registry)

	client := realtime.New(clientConfig(cfg), realtime.Deps{
		Token:   tokenSource(cfg.Server),
		Logger:  logger,
		Metrics: clientMetrics,
	})

	rec := recorder.New(recorder.Config{
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval,
		Table:         cfg.Recorder.Table,
	}, client, pool, logger)

	if err := rec.Start(ctx); err != nil {
		logger.Error("failed to start recorder", "error", err)
		os.Exit(1)
	}

	client.Open()

	// Metrics + health server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(cfg.Metrics.Path, registry, pool, client, rec),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("metrics server listening", "addr", srv.Addr, "path", cfg.Metrics.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("recorder running",
		"server", cfg.Server.Host,
		"table", cfg.Recorder.Table,
		"metrics_url", fmt.Sprintf("http://localhost:%d%s", cfg.Metrics.Port, cfg.Metrics.Path),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	client.Close()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := rec.Stop(stopCtx); err != nil {
		logger.Error("recorder stop failed", "error", err)
	}

	if err := g.Wait(); err != nil {
		logger.Error("metrics server error", "error", err)
	}

	logger.Info("recorder stopped")
}

// createHandler serves Prometheus metrics plus a JSON health check.
func createHandler(metricsPath string, registry *prometheus.Registry, pool *pgxpool.Pool, client *realtime.Client, rec *recorder.Recorder) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		stats := client.Stats()
		health.Components["realtime"] = map[string]any{
			"state":    stats.State.String(),
			"attempts": stats.Attempts,
			"queued":   stats.QueuedMessages,
		}
		if stats.State != realtime.StateConnected {
			health.Status = "degraded"
		}

		recStats := rec.Stats()
		health.Components["recorder"] = map[string]any{
			"inserts": recStats.Inserts,
			"errors":  recStats.Errors,
			"flushes": recStats.Flushes,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}

// clientConfig maps the file configuration onto the realtime client.
func clientConfig(cfg *config.Config) realtime.Config {
	return realtime.Config{
		Host:                 cfg.Server.Host,
		Secure:               cfg.Server.Secure,
		Path:                 cfg.Server.Path,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Realtime.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Realtime.ReconnectMaxDelay,
		ReconnectJitter:      cfg.Realtime.ReconnectJitter,
		HeartbeatInterval:    cfg.Realtime.HeartbeatInterval,
		HeartbeatTimeout:     cfg.Realtime.HeartbeatTimeout,
		DialTimeout:          cfg.Realtime.DialTimeout,
		MaxQueueSize:         cfg.Realtime.MaxQueueSize,
	}
}

func tokenSource(cfg config.ServerConfig) auth.TokenSource {
	switch {
	case cfg.TokenEnv != "":
		return auth.FromEnv(cfg.TokenEnv)
	case cfg.TokenFile != "":
		return auth.FromFile(cfg.TokenFile)
	default:
		return nil
	}
}
