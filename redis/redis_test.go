package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"

	"github.com/kbukum/metatrack/component"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/resilience"
)

type cue struct {
	ID      string `json:"id"`
	StartUs int64  `json:"start_us"`
}

func newTestClient(t *testing.T, mutate ...func(*Config)) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	cfg := Config{Enabled: true, Addr: mini.Addr()}
	for _, m := range mutate {
		m(&cfg)
	}
	client, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Channel != "metadata" || cfg.PublishTimeout != "2s" || cfg.PoolSize != 10 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ConnectAttempts != 3 || cfg.BreakerFailures != 5 || cfg.BreakerCooldown != "30s" {
		t.Errorf("unexpected resilience defaults %+v", cfg)
	}
	if cfg.LatestPrefix != "" {
		t.Error("latest key should be opt-in")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"disabled", Config{}, ""},
		{"no addr", Config{Enabled: true}, "addr"},
		{"bad ttl", Config{Enabled: true, Addr: "localhost:6379", LatestTTL: "forever"}, "latest_ttl"},
		{"bad timeout", Config{Enabled: true, Addr: "localhost:6379", PublishTimeout: "x"}, "publish_timeout"},
		{"valid", Config{Enabled: true, Addr: "localhost:6379", LatestTTL: "5m"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{Addr: "localhost:6379"}, logger.Nop()); err == nil {
		t.Fatal("expected error for disabled redis")
	}
}

func TestClient_PingAndClose(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Client() == nil {
		t.Fatal("expected client after start")
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if c.Client() != nil {
		t.Error("expected no client after stop")
	}
}

func TestComponent_StartFailsWithoutServer(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	c := NewComponent(Config{Enabled: true, Addr: addr, DialTimeout: "100ms", MaxRetries: 1, ConnectAttempts: 2, ConnectBackoff: "1ms"}, logger.Nop())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
}

func TestTypedStore_SaveLoadDelete(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cue](client, "cues")
	ctx := context.Background()

	got, err := store.Load(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for missing key, got %v, %v", got, err)
	}

	if err := store.Save(ctx, "k1", &cue{ID: "a", StartUs: 5}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mini.Exists("cues:k1") {
		t.Fatal("expected prefixed key in redis")
	}
	got, err = store.Load(ctx, "k1")
	if err != nil || got == nil || got.ID != "a" || got.StartUs != 5 {
		t.Fatalf("Load = %+v, %v", got, err)
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cue](client, "")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &cue{ID: "a"}, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mini.Exists("k1") {
		t.Fatal("expected unprefixed key")
	}
	mini.FastForward(3 * time.Second)
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected expiry, got %+v", got)
	}
}

func TestTypedStore_CorruptValue(t *testing.T) {
	client, mini := newTestClient(t)
	if err := mini.Set("cues:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTypedStore[cue](client, "cues").Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestPublisher_PublishesEnvelope(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "metadata")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	pub := NewPublisher[cue](client, "captions")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	pub.OnMetadata(cue{ID: "a", StartUs: 100})
	pub.OnMetadata(cue{ID: "b", StartUs: 200})

	for i, want := range []string{"a", "b"} {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		var env Envelope[cue]
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			t.Fatalf("bad envelope %q: %v", msg.Payload, err)
		}
		if env.TrackID != "captions" || env.Seq != uint64(i+1) || env.Value.ID != want || !env.PublishedAt.Equal(fixed) {
			t.Errorf("envelope %d = %+v", i, env)
		}
	}
	if pub.Published() != 2 || pub.Failed() != 0 {
		t.Errorf("published=%d failed=%d", pub.Published(), pub.Failed())
	}

	latest, err := pub.Latest(ctx)
	if err != nil || latest != nil {
		t.Errorf("latest key disabled, got %+v, %v", latest, err)
	}
}

func TestPublisher_Latest(t *testing.T) {
	client, mini := newTestClient(t, func(c *Config) {
		c.LatestPrefix = "metadata:latest"
		c.LatestTTL = "1m"
	})
	ctx := context.Background()
	pub := NewPublisher[cue](client, "captions")

	pub.OnMetadata(cue{ID: "a"})
	pub.OnMetadata(cue{ID: "b"})

	latest, err := pub.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil || latest.Value.ID != "b" || latest.Seq != 2 {
		t.Fatalf("latest = %+v", latest)
	}
	if ttl := mini.TTL("metadata:latest:captions"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	if err := pub.Forget(ctx); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if latest, _ := pub.Latest(ctx); latest != nil {
		t.Errorf("expected no latest value after Forget, got %+v", latest)
	}
}

func TestPublisher_FailuresAreCounted(t *testing.T) {
	client, mini := newTestClient(t, func(c *Config) {
		c.PublishTimeout = "500ms"
		c.MaxRetries = 1
		c.DialTimeout = "100ms"
	})
	pub := NewPublisher[cue](client, "captions")
	mini.Close()

	pub.OnMetadata(cue{ID: "lost"})
	if pub.Failed() != 1 || pub.Published() != 0 {
		t.Errorf("published=%d failed=%d", pub.Published(), pub.Failed())
	}
}

func TestPublisher_CircuitOpensAfterFailures(t *testing.T) {
	client, mini := newTestClient(t, func(c *Config) {
		c.PublishTimeout = "500ms"
		c.MaxRetries = 1
		c.DialTimeout = "100ms"
		c.BreakerFailures = 2
		c.BreakerCooldown = "1h"
	})
	pub := NewPublisher[cue](client, "captions")
	mini.Close()

	pub.OnMetadata(cue{ID: "a"})
	pub.OnMetadata(cue{ID: "b"})
	if pub.Circuit() != resilience.StateOpen {
		t.Fatalf("expected open circuit, got %s", pub.Circuit())
	}

	start := time.Now()
	pub.OnMetadata(cue{ID: "c"})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("open circuit should skip immediately, took %v", elapsed)
	}
	if pub.Failed() != 3 || pub.Published() != 0 {
		t.Errorf("published=%d failed=%d", pub.Published(), pub.Failed())
	}
}
