package logger

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// Levels accepted for logging.level and component overrides.
	Levels = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	// Formats accepted for logging.format.
	Formats = []string{"json", "console", FormatPretty}
)

// Config contains logging configuration.
type Config struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// Components overrides Level for named component loggers, for example
	// {metadata: debug, redis: warn}.
	Components map[string]string `yaml:"components" mapstructure:"components"`
}

// ApplyDefaults fills unset fields and normalizes case.
func (c *Config) ApplyDefaults() {
	c.Level = strings.ToLower(c.Level)
	c.Format = strings.ToLower(c.Format)
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
	for name, lvl := range c.Components {
		c.Components[name] = strings.ToLower(lvl)
	}
}

// Validate checks levels and format.
func (c *Config) Validate() error {
	if !slices.Contains(Levels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", Levels, c.Level)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", Formats, c.Format)
	}
	for _, name := range slices.Sorted(maps.Keys(c.Components)) {
		if lvl := c.Components[name]; !slices.Contains(Levels, lvl) {
			return fmt.Errorf("logging.components.%s must be one of %v (got: %s)", name, Levels, lvl)
		}
	}
	return nil
}

// LevelFor returns the level override for component, if one is configured.
func (c *Config) LevelFor(component string) (zerolog.Level, bool) {
	if c == nil {
		return zerolog.NoLevel, false
	}
	lvl, ok := c.Components[component]
	if !ok {
		return zerolog.NoLevel, false
	}
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return parsed, true
}
