package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/metatrack/component"
	"github.com/kbukum/metatrack/config"
	"github.com/kbukum/metatrack/errors"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/parser"
	"github.com/kbukum/metatrack/redis"
	"github.com/kbukum/metatrack/stream"
)

type mockComponent struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(context.Context) error {
	m.stopped = true
	return nil
}
func (m *mockComponent) Health(context.Context) component.Health {
	return component.Health{Name: m.name, Status: component.StatusHealthy}
}

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) OnMetadata(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func testConfig() *Config {
	return &Config{Config: config.Config{
		Name: "metatrack-test",
		Pipeline: config.PipelineConfig{
			TrackID:      "captions",
			MimeType:     parser.MimeText,
			TickInterval: time.Millisecond,
		},
	}}
}

func samples(values ...string) stream.Iterator[metadata.Sample] {
	out := make([]metadata.Sample, len(values))
	for i, v := range values {
		out[i] = metadata.Sample{Data: []byte(v), TimeUs: int64(i+1) * 100}
	}
	return stream.Slice(out)
}

func farAhead() int64 { return 1 << 40 }

func newTestApp(t *testing.T, cfg *Config, opts ...Option) *App {
	t.Helper()
	app, err := NewApp(cfg, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.TrackID = ""
	app := newTestApp(t, cfg)

	if app.Name != "metatrack-test" {
		t.Errorf("expected name 'metatrack-test', got %q", app.Name)
	}
	if app.Version == "" {
		t.Error("expected version from build info")
	}
	if app.Cfg.Pipeline.TrackID == "" {
		t.Error("expected a generated track id")
	}
	if app.Looper != nil || app.Redis != nil {
		t.Error("dispatch and redis should be off by default")
	}
	if app.Components == nil || app.Logger == nil {
		t.Error("expected registry and logger")
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Name = ""
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error")
	}

	cfg = testConfig()
	cfg.Kafka.Enabled = true
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil || !strings.Contains(err.Error(), "config.kafka") {
		t.Fatalf("expected kafka validation error, got %v", err)
	}
}

func TestNewApp_RegistersComponents(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Dispatch.Enabled = true
	cfg.Redis = redisConfig("localhost:6379")
	app := newTestApp(t, cfg)

	if app.Looper == nil || app.Components.Get(cfg.Pipeline.Dispatch.Looper) == nil {
		t.Error("expected looper component")
	}
	if app.Redis == nil || app.Components.Get("redis") == nil {
		t.Error("expected redis component")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: metatrack
pipeline:
  track_id: id3-track
  mime_type: application/id3
  dispatch:
    enabled: true
kafka:
  enabled: true
  brokers: [k1:9092]
  topic: timed-metadata
redis:
  enabled: true
  addr: localhost:6379
  latest_prefix: "metadata:latest"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("metatrack", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "metatrack" || cfg.Pipeline.MimeType != parser.MimeID3 || !cfg.Pipeline.Dispatch.Enabled {
		t.Errorf("unexpected core config %+v", cfg.Config)
	}
	if cfg.Kafka.Topic != "timed-metadata" || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Buffer != 64 {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
	if cfg.Redis.LatestPrefix != "metadata:latest" || cfg.Redis.Channel != "metadata" {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	app := newTestApp(t, testConfig())
	mock := &mockComponent{name: "mock"}
	if err := app.RegisterComponent(mock); err != nil {
		t.Fatal(err)
	}

	var order []string
	app.OnStart(func(context.Context) error { order = append(order, "start"); return nil })
	app.OnReady(func(context.Context) error { order = append(order, "ready"); return nil })
	app.OnStop(func(context.Context) error { order = append(order, "stop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		order = append(order, "task")
		if app.Metrics == nil {
			t.Error("metrics should be ready when the task runs")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if strings.Join(order, ",") != "start,ready,task,stop" {
		t.Errorf("hook order = %v", order)
	}
	if !mock.started || !mock.stopped {
		t.Error("component should be started and stopped")
	}
}

func TestRunTask_StartFailure(t *testing.T) {
	app := newTestApp(t, testConfig())
	if err := app.RegisterComponent(&mockComponent{name: "broken", startErr: context.DeadlineExceeded}); err != nil {
		t.Fatal(err)
	}
	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil {
		t.Fatal("expected start failure")
	}
	if ran {
		t.Error("task must not run after a failed start")
	}
}

func TestHooks_StartFailureStopsStartup(t *testing.T) {
	app := newTestApp(t, testConfig())
	readyRan := false
	app.OnStart(func(context.Context) error { return context.Canceled })
	app.OnReady(func(context.Context) error { readyRan = true; return nil })

	err := app.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "start hook 0") {
		t.Fatalf("expected start hook error, got %v", err)
	}
	if readyRan {
		t.Error("ready hooks must not run after a failed start hook")
	}
	_ = app.Shutdown(context.Background())
}

func TestHooks_StopRunsAllInReverse(t *testing.T) {
	app := newTestApp(t, testConfig())
	var order []string
	app.OnStop(
		func(context.Context) error { order = append(order, "first"); return nil },
		func(context.Context) error { order = append(order, "second"); return context.DeadlineExceeded },
	)
	app.OnStop(func(context.Context) error { order = append(order, "third"); return nil })

	err := app.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "stop hook 1") {
		t.Fatalf("expected joined stop hook error, got %v", err)
	}
	if got := strings.Join(order, ","); got != "third,second,first" {
		t.Errorf("stop hook order = %q", got)
	}
}

func TestDrive_UsesAppClock(t *testing.T) {
	app := newTestApp(t, testConfig(), WithSource(samples("a", "b")), WithClock(farAhead), WithTrackIndex(3))
	rec := &recorder{}

	if err := Drive[string](context.Background(), app, parser.Text{}, rec, nil); err != nil {
		t.Fatalf("Drive failed: %v", err)
	}
	if got := strings.Join(rec.snapshot(), ","); got != "a,b" {
		t.Errorf("delivered %q", got)
	}
}

func TestDrive_Direct(t *testing.T) {
	app := newTestApp(t, testConfig(), WithSource(samples("a", "b", "c")))
	rec := &recorder{}

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return Drive[string](ctx, app, parser.Text{}, rec, farAhead)
	})
	if err != nil {
		t.Fatalf("Drive failed: %v", err)
	}
	if got := strings.Join(rec.snapshot(), ","); got != "a,b,c" {
		t.Errorf("delivered %q", got)
	}
}

func TestDrive_Looper(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Dispatch.Enabled = true
	app := newTestApp(t, cfg, WithSource(samples("a", "b")))
	rec := &recorder{}

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if err := Drive[string](ctx, app, parser.Text{}, rec, farAhead); err != nil {
			return err
		}
		if got := strings.Join(rec.snapshot(), ","); got != "a,b" {
			t.Errorf("values should be delivered when Drive returns, got %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
}

func TestDrive_GatesOnClock(t *testing.T) {
	app := newTestApp(t, testConfig(), WithSource(samples("a", "b", "c")))
	rec := &recorder{}

	var mu sync.Mutex
	position := int64(150)
	clock := func() int64 {
		mu.Lock()
		defer mu.Unlock()
		return position
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Drive[string](ctx, app, parser.Text{}, rec, clock) }()

	time.Sleep(50 * time.Millisecond)
	if got := strings.Join(rec.snapshot(), ","); got != "a" {
		t.Errorf("at 150us only the first cue is due, got %q", got)
	}

	mu.Lock()
	position = 300
	mu.Unlock()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Drive failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("track did not finish")
	}
	cancel()
	if got := strings.Join(rec.snapshot(), ","); got != "a,b,c" {
		t.Errorf("delivered %q", got)
	}
}

func TestDrive_ParseFailure(t *testing.T) {
	bad := stream.Slice([]metadata.Sample{{Data: []byte{'a', 0xff}, TimeUs: 1}})
	app := newTestApp(t, testConfig(), WithSource(bad))

	err := Drive[string](context.Background(), app, parser.Text{}, &recorder{}, farAhead)
	if !errors.IsCode(err, errors.ErrCodeParseFailed) {
		t.Fatalf("expected PARSE_FAILED, got %v", err)
	}
}

func TestDrive_UnsupportedFormat(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.MimeType = "application/octet-stream"
	app := newTestApp(t, cfg, WithSource(samples("a")))

	err := Drive[string](context.Background(), app, parser.Text{}, &recorder{}, farAhead)
	if !errors.IsCode(err, errors.ErrCodeUnsupportedFormat) {
		t.Fatalf("expected UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestDrive_NoSource(t *testing.T) {
	app := newTestApp(t, testConfig())
	err := Drive[string](context.Background(), app, parser.Text{}, &recorder{}, farAhead)
	if err == nil || !strings.Contains(err.Error(), "no sample source") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestDrive_NoConsumer(t *testing.T) {
	app := newTestApp(t, testConfig(), WithSource(samples("a")))
	if err := Drive[string](context.Background(), app, parser.Text{}, nil, farAhead); err == nil {
		t.Fatal("expected error without any consumer")
	}
}

type endless struct{}

func (endless) Next(ctx context.Context) (metadata.Sample, bool, error) {
	<-ctx.Done()
	return metadata.Sample{}, false, nil
}
func (endless) Close() error { return nil }

func TestDrive_Canceled(t *testing.T) {
	app := newTestApp(t, testConfig(), WithSource(endless{}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := Drive[string](ctx, app, parser.Text{}, &recorder{}, farAhead); err != nil {
		t.Fatalf("cancellation should stop the track cleanly, got %v", err)
	}
}

func TestDrive_PublishesToRedis(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = redisConfig(mini.Addr())
	app := newTestApp(t, cfg, WithSource(samples("a", "b")))
	rec := &recorder{}

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return Drive[string](ctx, app, parser.Text{}, rec, farAhead)
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if len(rec.snapshot()) != 2 {
		t.Errorf("local consumer should still receive values, got %v", rec.snapshot())
	}
	raw, err := mini.Get("metadata:latest:captions")
	if err != nil {
		t.Fatalf("expected latest key: %v", err)
	}
	if !strings.Contains(raw, `"value":"b"`) || !strings.Contains(raw, `"seq":2`) {
		t.Errorf("latest = %s", raw)
	}
}

func TestSink(t *testing.T) {
	app := newTestApp(t, testConfig())
	if Sink[string](app, nil) != nil {
		t.Error("expected nil sink without consumer or redis")
	}
	rec := &recorder{}
	Sink[string](app, rec).OnMetadata("x")
	if len(rec.snapshot()) != 1 {
		t.Error("expected the consumer to be used directly")
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Dispatch.Enabled = true
	app := newTestApp(t, cfg)
	if n := len(app.PipelineOptions(2)); n != 5 {
		t.Errorf("expected 5 options with a looper, got %d", n)
	}
	if f := app.Format(); f.ID != "captions" || f.SampleMimeType != parser.MimeText {
		t.Errorf("unexpected format %+v", f)
	}
}

func redisConfig(addr string) (cfg redis.Config) {
	cfg.Enabled = true
	cfg.Addr = addr
	cfg.LatestPrefix = "metadata:latest"
	cfg.ApplyDefaults()
	return cfg
}
