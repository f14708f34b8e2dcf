package kafka

import (
	"slices"
	"time"

	"github.com/kbukum/metatrack/validation"
)

// Config holds Kafka connection and sample source configuration.
type Config struct {
	// Enabled controls whether samples are read from Kafka.
	Enabled bool `mapstructure:"enabled"`

	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`

	// GroupID is the consumer group. When empty the source reads Partition
	// directly.
	GroupID   string `mapstructure:"group_id"`
	Topic     string `mapstructure:"topic"`
	Partition int    `mapstructure:"partition"`

	// StartOffset is "first" or "last".
	StartOffset string `mapstructure:"start_offset"`

	// Sample mapping
	TimeHeader        string `mapstructure:"time_header"`
	EndOfStreamHeader string `mapstructure:"eos_header"`
	// UseMessageTime falls back to the message timestamp when the time
	// header is missing.
	UseMessageTime bool `mapstructure:"use_message_time"`
	// Buffer is the number of samples read ahead of the pipeline.
	Buffer int `mapstructure:"buffer"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Reader settings
	MaxBytes          int    `mapstructure:"max_bytes"`
	SessionTimeout    string `mapstructure:"session_timeout"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `mapstructure:"rebalance_timeout"`
	DialTimeout       string `mapstructure:"dial_timeout"`

	// Retries is the number of consecutive retryable read failures
	// tolerated before the source fails.
	Retries      int    `mapstructure:"retries"`
	RetryBackoff string `mapstructure:"retry_backoff"`
	MaxBackoff   string `mapstructure:"max_backoff"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.StartOffset == "" {
		c.StartOffset = "first"
	}
	if c.TimeHeader == "" {
		c.TimeHeader = HeaderTimeUs
	}
	if c.EndOfStreamHeader == "" {
		c.EndOfStreamHeader = HeaderEndOfStream
	}
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.RebalanceTimeout == "" {
		c.RebalanceTimeout = "30s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.Retries <= 0 {
		c.Retries = 5
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "1s"
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "30s"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	v := validation.For("kafka").
		NotEmpty("brokers", len(c.Brokers)).
		Required("topic", c.Topic).
		Custom(c.GroupID != "" || c.Partition >= 0, "partition", "must be >= 0 without a group_id").
		OneOf("start_offset", c.StartOffset, []string{"first", "last"}).
		Min("buffer", c.Buffer, 0).
		Min("retries", c.Retries, 0).
		Duration("session_timeout", c.SessionTimeout).
		Duration("heartbeat_interval", c.HeartbeatInterval).
		Duration("rebalance_timeout", c.RebalanceTimeout).
		Duration("dial_timeout", c.DialTimeout).
		Duration("retry_backoff", c.RetryBackoff).
		Duration("max_backoff", c.MaxBackoff)
	if c.EnableSASL {
		v.Custom(slices.Contains(SASLMechanisms(), c.SASLMechanism), "sasl_mechanism",
			"unsupported SASL mechanism "+c.SASLMechanism).
			Required("username", c.Username)
	}
	return v.Err()
}

// ParseDuration parses a duration string, returning zero on empty input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
