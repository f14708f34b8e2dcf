package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/metatrack/logger"
)

// InstrumentationName names the tracer and meter used by metatrack packages.
const InstrumentationName = "github.com/kbukum/metatrack"

// DefaultEndpoint is the local OTLP/HTTP collector.
const DefaultEndpoint = "localhost:4318"

// Service identifies the process on every exported span and metric.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Exporter is an OTLP/HTTP destination.
type Exporter struct {
	// Endpoint is host:port, without scheme.
	Endpoint string
	Insecure bool
}

// TracerConfig configures span export.
type TracerConfig struct {
	Service  Service
	Exporter Exporter
	// SampleRate is the fraction of parses traced, from 0 to 1.
	SampleRate float64
}

// MeterConfig configures metric export.
type MeterConfig struct {
	Service  Service
	Exporter Exporter
	// Interval is the export period. Zero uses the SDK default.
	Interval time.Duration
}

func localExporter() Exporter { return Exporter{Endpoint: DefaultEndpoint, Insecure: true} }

// DefaultTracerConfig traces every parse to a local collector.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		Service:    Service{Name: serviceName, Environment: "development"},
		Exporter:   localExporter(),
		SampleRate: 1.0,
	}
}

// DefaultMeterConfig exports to a local collector every 15s.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		Service:  Service{Name: serviceName, Environment: "development"},
		Exporter: localExporter(),
		Interval: 15 * time.Second,
	}
}

func (s Service) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", s.Name)}
	if s.Version != "" {
		attrs = append(attrs, attribute.String("service.version", s.Version))
	}
	if s.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", s.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// InitTracer installs a global tracer provider exporting over OTLP/HTTP and
// the W3C trace context propagator. Shut the provider down on exit.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Exporter.Endpoint)}
	if cfg.Exporter.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := cfg.Service.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", logger.Fields(
		"endpoint", cfg.Exporter.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

// InitMeter installs a global meter provider with a periodic OTLP/HTTP
// reader. Shut the provider down on exit to flush the last period.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Exporter.Endpoint)}
	if cfg.Exporter.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := cfg.Service.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Exporter.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Providers are the SDK providers installed by Setup. Either may be nil.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Setup installs the providers whose config is non-nil. On error, any
// provider already installed is shut down.
func Setup(ctx context.Context, tracing *TracerConfig, metrics *MeterConfig) (*Providers, error) {
	p := &Providers{}
	if tracing != nil {
		tp, err := InitTracer(ctx, *tracing)
		if err != nil {
			return nil, err
		}
		p.Tracer = tp
	}
	if metrics != nil {
		mp, err := InitMeter(ctx, *metrics)
		if err != nil {
			return nil, stderrors.Join(err, p.Shutdown(ctx))
		}
		p.Meter = mp
	}
	return p, nil
}

// Shutdown flushes and stops the installed providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Tracer != nil {
		if err := p.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return stderrors.Join(errs...)
}
