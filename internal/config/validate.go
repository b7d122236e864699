package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.TokenEnv != "" && c.Server.TokenFile != "" {
		return errors.New("server.token_env and server.token_file are mutually exclusive")
	}

	if c.Realtime.MaxReconnectAttempts < -1 {
		return fmt.Errorf("realtime.max_reconnect_attempts must be >= -1, got %d", c.Realtime.MaxReconnectAttempts)
	}
	if c.Realtime.ReconnectBaseDelay < 0 || c.Realtime.ReconnectMaxDelay < 0 {
		return errors.New("realtime reconnect delays must be >= 0")
	}
	if c.Realtime.ReconnectMaxDelay < c.Realtime.ReconnectBaseDelay {
		return errors.New("realtime.reconnect_max_delay must be >= realtime.reconnect_base_delay")
	}
	if c.Realtime.HeartbeatTimeout >= c.Realtime.HeartbeatInterval {
		return errors.New("realtime.heartbeat_timeout must be shorter than realtime.heartbeat_interval")
	}
	if c.Realtime.MaxQueueSize < 1 {
		return errors.New("realtime.max_queue_size must be >= 1")
	}

	if c.Recorder.Enabled {
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns must be <= max_conns", prefix)
	}
	return nil
}
