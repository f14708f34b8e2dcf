package config

import (
	"fmt"
	"time"

	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/validation"
)

// Environments accepted by Validate.
var Environments = []string{"development", "staging", "production"}

// Config is the top-level configuration of a metatrack host.
type Config struct {
	Name          string              `yaml:"name" mapstructure:"name" validate:"required"`
	Environment   string              `yaml:"environment" mapstructure:"environment"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// PipelineConfig configures one metadata pipeline.
type PipelineConfig struct {
	// TrackID identifies the track in logs, errors and metrics. A random
	// UUID is used when empty.
	TrackID string `yaml:"track_id" mapstructure:"track_id" validate:"max=128"`
	// MimeType is the sample mime type of the track.
	MimeType string `yaml:"mime_type" mapstructure:"mime_type" validate:"required,mimetype"`
	// TickInterval is how often a host advances the pipeline.
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval" validate:"gt=0"`
	// KeepStale delivers values handed to the target looper before a reset.
	KeepStale bool           `yaml:"keep_stale" mapstructure:"keep_stale"`
	Dispatch  DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
}

// DispatchConfig configures the looper consumers run on.
type DispatchConfig struct {
	// Enabled runs consumers on a dedicated looper instead of the
	// goroutine driving the pipeline.
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Looper  string `yaml:"looper" mapstructure:"looper"`
	// QueueCapacity is the initial task queue capacity. The queue grows
	// past it.
	QueueCapacity int           `yaml:"queue_capacity" mapstructure:"queue_capacity" validate:"gte=0"`
	StopTimeout   time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout" validate:"gte=0"`
}

// ObservabilityConfig configures the OTLP exporters.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Environment == "development" && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	v := validation.New().
		Required("name", c.Name).
		OneOf("environment", c.Environment, Environments)
	if err := v.Err(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// ApplyDefaults fills unset pipeline fields.
func (c *PipelineConfig) ApplyDefaults() {
	if c.MimeType == "" {
		c.MimeType = "application/json"
	}
	if c.TickInterval == 0 {
		c.TickInterval = 10 * time.Millisecond
	}
	if c.Dispatch.Looper == "" {
		c.Dispatch.Looper = "metadata"
	}
	if c.Dispatch.QueueCapacity == 0 {
		c.Dispatch.QueueCapacity = 64
	}
	if c.Dispatch.StopTimeout == 0 {
		c.Dispatch.StopTimeout = 5 * time.Second
	}
}

// ApplyDefaults fills unset exporter fields.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}
