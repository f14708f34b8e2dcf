package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/metatrack/component"
	"github.com/kbukum/metatrack/dispatch"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/observability"
	"github.com/kbukum/metatrack/redis"
	"github.com/kbukum/metatrack/stream"
	"github.com/kbukum/metatrack/version"
)

// Component loggers seeded into the logger registry.
var componentLoggers = []string{"metadata", "stream", "dispatch", "kafka.source", "redis", "component"}

// App is a metatrack host with uniform lifecycle management.
type App struct {
	Name       string
	Version    string
	Cfg        *Config
	Components *component.Registry
	Logger     *logger.Logger

	// Looper runs consumers when pipeline.dispatch.enabled is set.
	Looper *dispatch.Looper
	// Redis publishes delivered values when redis.enabled is set.
	Redis *redis.Component
	// Metrics is set once the app has started.
	Metrics *observability.PipelineMetrics

	source          stream.Iterator[metadata.Sample]
	gracefulTimeout time.Duration
	telemetry       *observability.Providers

	clock      Clock
	trackIndex int
	hooks      hookSet
}

// NewApp creates an application from cfg. It applies defaults, validates
// the config, initializes logging and registers the configured components.
func NewApp(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	// The pipeline and the Redis publisher must agree on the track ID.
	if cfg.Pipeline.TrackID == "" {
		cfg.Pipeline.TrackID = uuid.NewString()
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.Logger == nil {
		logger.Init(&cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	logger.Seed(app.Logger, &cfg.Logging, componentLoggers...)
	app.Components = component.NewRegistry(cfg.Pipeline.Dispatch.StopTimeout)

	if cfg.Pipeline.Dispatch.Enabled {
		app.Looper = dispatch.NewLooperFromConfig(cfg.Pipeline.Dispatch)
		if err := app.RegisterComponent(app.Looper); err != nil {
			return nil, err
		}
	}
	if cfg.Redis.Enabled {
		app.Redis = redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(app.Redis); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	health := a.Components.HealthAll(ctx)
	if component.Worst(health) == component.StatusHealthy {
		return nil
	}
	var failing []string
	for _, h := range health {
		if !h.OK() {
			failing = append(failing, h.String())
		}
	}
	return fmt.Errorf("unhealthy components: %v", failing)
}

// RunTask starts the application, runs task and shuts down when task
// returns or the process receives SIGINT or SIGTERM.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.Start(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Warn("shutdown after failed start", logger.ErrorFields("stop", stopErr))
		}
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	taskErr := task(taskCtx)
	if taskCtx.Err() != nil && ctx.Err() == nil {
		a.Logger.Info("received signal, task canceled")
	}

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// Start initializes telemetry, starts all components and runs the start
// and ready hooks.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.initTelemetry(ctx); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := a.hooks.run(ctx, PhaseStart); err != nil {
		return err
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.ErrorFields("ready", err))
	}
	if err := a.hooks.run(ctx, PhaseReady); err != nil {
		return err
	}

	a.Logger.Info("application ready", logger.Fields(
		"startup", time.Since(start).String(),
		logger.FieldTrackID, a.Cfg.Pipeline.TrackID,
		logger.FieldMimeType, a.Cfg.Pipeline.MimeType,
		"dispatch", a.Looper != nil,
		"kafka", a.Cfg.Kafka.Enabled,
		"redis", a.Redis != nil,
	))
	return nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	obs := a.Cfg.Observability
	svc := observability.Service{Name: a.Name, Version: a.Version, Environment: a.Cfg.Environment}
	var tracing *observability.TracerConfig
	if obs.Tracing.Enabled {
		tracing = &observability.TracerConfig{
			Service:    svc,
			Exporter:   observability.Exporter{Endpoint: obs.Tracing.Endpoint, Insecure: obs.Tracing.Insecure},
			SampleRate: obs.Tracing.SampleRate,
		}
	}
	var metering *observability.MeterConfig
	if obs.Metrics.Enabled {
		metering = &observability.MeterConfig{
			Service:  svc,
			Exporter: observability.Exporter{Endpoint: obs.Metrics.Endpoint, Insecure: obs.Metrics.Insecure},
			Interval: obs.Metrics.Interval,
		}
	}
	providers, err := observability.Setup(ctx, tracing, metering)
	if err != nil {
		return err
	}
	a.telemetry = providers

	metrics, err := observability.NewPipelineMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return err
	}
	a.Metrics = metrics
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or cancellation of ctx.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App) Shutdown(_ context.Context) error {
	return a.stop()
}

// stop runs the stop hooks, stops components in reverse order and flushes
// telemetry, all within the graceful timeout.
func (a *App) stop() error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := a.hooks.run(ctx, PhaseStop); err != nil {
		a.Logger.Error("stop hook error", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("component shutdown error", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info("application shutdown complete")
	return stderrors.Join(errs...)
}
