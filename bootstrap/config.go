package bootstrap

import (
	"fmt"

	"github.com/kbukum/metatrack/config"
	"github.com/kbukum/metatrack/kafka"
	"github.com/kbukum/metatrack/redis"
)

// Config is the configuration of a metatrack host: the core settings plus
// the sample source and the publishing sink.
//
//	name: metatrack
//	pipeline:
//	  mime_type: application/id3
//	kafka:
//	  enabled: true
//	  topic: timed-metadata
//	redis:
//	  enabled: true
//	  addr: localhost:6379
type Config struct {
	config.Config `yaml:",inline" mapstructure:",squash"`
	Kafka         kafka.Config `yaml:"kafka" mapstructure:"kafka"`
	Redis         redis.Config `yaml:"redis" mapstructure:"redis"`
}

// Load reads the configuration of serviceName from files and environment,
// then applies defaults and validates it.
func Load(serviceName string, opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.Load(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields of every section.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Redis.ApplyDefaults()
}

// Validate checks every section. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("config.kafka: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("config.redis: %w", err)
	}
	return nil
}
