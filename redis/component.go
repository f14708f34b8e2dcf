package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/metatrack/component"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/resilience"
)

// Component wraps Client and implements component.Component.
type Component struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	client *Client
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Redis component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Get("redis")
	}
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the underlying *Client, or nil if not started.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start creates the client and pings the server, retrying up to
// ConnectAttempts times.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	cfg := client.Config()
	retry := resilience.RetryConfig{
		MaxAttempts: cfg.ConnectAttempts,
		Backoff:     resilience.Backoff{Initial: duration(cfg.ConnectBackoff), Factor: 2},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.log.Warn("redis ping failed, retrying", logger.ErrorFields("ping", err), logger.Fields(
				"attempt", attempt,
				"delay", delay.String(),
			))
		},
	}
	if err := resilience.RetryFunc(ctx, retry, func() error { return client.Ping(ctx) }); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.log.Info("redis component started")
	return nil
}

// Stop closes the Redis connection.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	c.log.Info("redis component stopping")
	return client.Close()
}

// Health pings Redis.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Unhealthy(c.Name(), "redis not initialized")
	}
	if err := client.Ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), fmt.Sprintf("ping failed: %v", err))
	}
	return component.Healthy(c.Name(), "")
}
