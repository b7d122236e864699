package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSPath               = "/ws"
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultReconnectJitter      = 500 * time.Millisecond
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatTimeout     = 10 * time.Second
	DefaultDialTimeout          = 10 * time.Second
	DefaultMaxQueueSize         = 100
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 2 * time.Second
	DefaultEventTable           = "events"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Path == "" {
		c.Server.Path = DefaultWSPath
	}

	// Realtime defaults
	if c.Realtime.MaxReconnectAttempts == 0 {
		c.Realtime.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Realtime.ReconnectBaseDelay == 0 {
		c.Realtime.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Realtime.ReconnectMaxDelay == 0 {
		c.Realtime.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Realtime.ReconnectJitter == 0 {
		c.Realtime.ReconnectJitter = DefaultReconnectJitter
	}
	if c.Realtime.HeartbeatInterval == 0 {
		c.Realtime.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Realtime.HeartbeatTimeout == 0 {
		c.Realtime.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Realtime.DialTimeout == 0 {
		c.Realtime.DialTimeout = DefaultDialTimeout
	}
	if c.Realtime.MaxQueueSize == 0 {
		c.Realtime.MaxQueueSize = DefaultMaxQueueSize
	}

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.Table == "" {
		c.Recorder.Table = DefaultEventTable
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
