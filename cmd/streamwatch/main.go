// streamwatch connects to an AgisFL backend and streams decoded events to
// the console.
// Usage: go run ./cmd/streamwatch --config configs/client.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agisfl/realtime-client/internal/auth"
	"github.com/agisfl/realtime-client/internal/config"
	"github.com/agisfl/realtime-client/internal/realtime"
	"github.com/agisfl/realtime-client/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	// Load configuration first; its debug flag feeds the logger level.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose || cfg.Realtime.DebugLogging {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamwatch",
		"version", version.Version,
		"commit", version.Commit,
		"server", cfg.Server.Host,
	)

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

	client := realtime.New(clientConfig(cfg), realtime.Deps{
		Token:  tokenSource(cfg.Server),
		Logger: logger,
	})

	client.On(realtime.ChannelConnection, func(_ string, env realtime.Envelope) {
		payload, err := realtime.DecodeEvent(env)
		if err != nil {
			return
		}
		ev := payload.(realtime.ConnectionEvent)
		logger.Info("connection event",
			"status", ev.Status,
			"reason", ev.Reason,
			"error", ev.Error,
		)
	})

	client.On("*", func(channel string, env realtime.Envelope) {
		if channel == realtime.ChannelConnection {
			return
		}
		printEvent(channel, env, *verbose)
	})

	client.Open()
	if !client.WaitForConnection(30 * time.Second) {
		logger.Warn("not connected yet, retries continue in the background")
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", stats.State,
					"attempts", stats.Attempts,
					"queued", stats.QueuedMessages,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info("shutting down...")
	client.Close()
	logger.Info("shutdown complete")
}

func printEvent(channel string, env realtime.Envelope, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(env, "", "  ")
		fmt.Printf("[%s] %s\n", channel, data)
		return
	}

	payload, err := realtime.DecodeEvent(env)
	if err != nil {
		fmt.Printf("[%s] undecodable: %v\n", channel, err)
		return
	}

	switch p := payload.(type) {
	case realtime.FLUpdate:
		fmt.Printf("[FL] round=%d/%d training=%v clients=%d accuracy=%s loss=%s\n",
			p.CurrentRound, p.TotalRounds, p.IsTraining, p.Metrics.ActiveClients,
			fmtMetric(p.Metrics.Accuracy), fmtMetric(p.Metrics.Loss))
	case realtime.IDSUpdate:
		fmt.Printf("[IDS] running=%v trained=%v threats=%d\n",
			p.IsRunning, p.IsTrained, p.DetectionStats["threats_detected"])
	case realtime.UnknownEvent:
		fmt.Printf("[%s] %s\n", p.Type, p.Data)
	}
}

func fmtMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
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
