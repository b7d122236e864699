package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
server:
  host: dashboard.example.com:8000
  secure: true
realtime:
  heartbeat_interval: 15s
  heartbeat_timeout: 5s
  max_queue_size: 50
`)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Server.Host != "dashboard.example.com:8000" {
		t.Errorf("Host = %q", cfg.Server.Host)
	}
	if !cfg.Server.Secure {
		t.Error("Secure = false, want true")
	}
	if cfg.Server.Path != DefaultWSPath {
		t.Errorf("Path = %q, want %q", cfg.Server.Path, DefaultWSPath)
	}
	if cfg.Realtime.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.Realtime.HeartbeatInterval)
	}
	if cfg.Realtime.MaxQueueSize != 50 {
		t.Errorf("MaxQueueSize = %d", cfg.Realtime.MaxQueueSize)
	}
	if cfg.Realtime.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Realtime.MaxReconnectAttempts)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d", cfg.Metrics.Port)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_WS_HOST", "envhost:9000")

	path := writeConfig(t, `
server:
  host: ${TEST_WS_HOST}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "envhost:9000" {
		t.Errorf("Host = %q, want envhost:9000", cfg.Server.Host)
	}
}

func TestValidate_RequiresHost(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing server.host")
	}
}

func TestValidate_HeartbeatTimeoutMustBeShorter(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "localhost:8000"
	cfg.applyDefaults()
	cfg.Realtime.HeartbeatTimeout = cfg.Realtime.HeartbeatInterval

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when heartbeat_timeout >= heartbeat_interval")
	}
}

func TestValidate_RecorderRequiresDatabase(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "localhost:8000"
	cfg.applyDefaults()
	cfg.Recorder.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for recorder without database")
	}

	cfg.Database.Timescale = DBConfig{
		Host:     "db",
		Port:     5432,
		Name:     "agisfl",
		User:     "agisfl",
		Password: "secret",
		MaxConns: 4,
		MinConns: 1,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidate_TokenSourcesExclusive(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "localhost:8000"
	cfg.Server.TokenEnv = "TOKEN"
	cfg.Server.TokenFile = "/run/secrets/token"
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for both token_env and token_file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
