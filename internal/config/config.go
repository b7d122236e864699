package config

import "time"

// Config is the root configuration for the realtime client tools.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Recorder RecorderConfig `yaml:"recorder"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig identifies the AgisFL backend endpoint.
type ServerConfig struct {
	Host      string `yaml:"host"`       // host:port of the backend
	Secure    bool   `yaml:"secure"`     // true selects wss://
	Path      string `yaml:"path"`       // WebSocket path, default /ws
	TokenEnv  string `yaml:"token_env"`  // env var holding the bearer token
	TokenFile string `yaml:"token_file"` // file holding the bearer token
}

// RealtimeConfig holds connection resilience settings.
type RealtimeConfig struct {
	// MaxReconnectAttempts caps automatic retries. 0 selects the default;
	// -1 retries without bound.
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	ReconnectJitter      time.Duration `yaml:"reconnect_jitter"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout     time.Duration `yaml:"heartbeat_timeout"`
	DialTimeout          time.Duration `yaml:"dial_timeout"`
	MaxQueueSize         int           `yaml:"max_queue_size"`
	DebugLogging         bool          `yaml:"debug_logging"`
}

// RecorderConfig holds event archive settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Table         string        `yaml:"table"`
}

// DatabaseConfig holds the TimescaleDB connection for the event archive.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
