package redis

import (
	"time"

	"github.com/kbukum/metatrack/validation"
)

// Config holds Redis connection and publishing configuration.
type Config struct {
	// Enabled controls whether decoded metadata is published to Redis.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the Redis server address (host:port).
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Channel is the pub/sub channel values are published on.
	Channel string `mapstructure:"channel"`

	// LatestPrefix prefixes the key holding the last value of each track.
	// Empty disables the latest-value key.
	LatestPrefix string `mapstructure:"latest_prefix"`

	// LatestTTL expires latest-value keys (e.g. "10m"). Empty means no expiry.
	LatestTTL string `mapstructure:"latest_ttl"`

	// PublishTimeout bounds one publish (e.g. "2s").
	PublishTimeout string `mapstructure:"publish_timeout"`

	// ConnectAttempts is the number of pings tried at startup, starting
	// ConnectBackoff apart and doubling.
	ConnectAttempts int    `mapstructure:"connect_attempts"`
	ConnectBackoff  string `mapstructure:"connect_backoff"`

	// BreakerFailures consecutive publish failures stop publishing for
	// BreakerCooldown, after which one publish probes the server.
	BreakerFailures int    `mapstructure:"breaker_failures"`
	BreakerCooldown string `mapstructure:"breaker_cooldown"`

	// Pool and retry settings
	PoolSize        int    `mapstructure:"pool_size"`
	MinIdleConns    int    `mapstructure:"min_idle_conns"`
	MaxRetries      int    `mapstructure:"max_retries"`
	MinRetryBackoff string `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff string `mapstructure:"max_retry_backoff"`
	DialTimeout     string `mapstructure:"dial_timeout"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Channel == "" {
		c.Channel = "metadata"
	}
	if c.PublishTimeout == "" {
		c.PublishTimeout = "2s"
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	if c.ConnectBackoff == "" {
		c.ConnectBackoff = "250ms"
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == "" {
		c.BreakerCooldown = "30s"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinRetryBackoff == "" {
		c.MinRetryBackoff = "8ms"
	}
	if c.MaxRetryBackoff == "" {
		c.MaxRetryBackoff = "512ms"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.For("redis").
		Required("addr", c.Addr).
		Required("channel", c.Channel).
		Min("pool_size", c.PoolSize, 1).
		Min("connect_attempts", c.ConnectAttempts, 1).
		Min("breaker_failures", c.BreakerFailures, 1).
		Duration("publish_timeout", c.PublishTimeout).
		Duration("connect_backoff", c.ConnectBackoff).
		Duration("breaker_cooldown", c.BreakerCooldown).
		Duration("min_retry_backoff", c.MinRetryBackoff).
		Duration("max_retry_backoff", c.MaxRetryBackoff).
		Duration("dial_timeout", c.DialTimeout).
		Duration("read_timeout", c.ReadTimeout).
		Duration("write_timeout", c.WriteTimeout).
		OptionalDuration("latest_ttl", c.LatestTTL).
		Err()
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
