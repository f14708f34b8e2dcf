// Package observability provides OpenTelemetry tracing and metrics for
// metatrack pipelines.
//
// Setup installs OTLP/HTTP exporters for the signals that are configured:
//
//	svc := observability.Service{Name: "player", Version: "1.4.0"}
//	tc := observability.DefaultTracerConfig(svc.Name)
//	providers, err := observability.Setup(ctx, &tc, nil)
//	defer providers.Shutdown(ctx)
//
// Pipelines record into PipelineMetrics:
//
//	metrics, err := observability.NewPipelineMetrics(observability.Meter(observability.InstrumentationName))
//	p, err := metadata.New(parser, consumer, metadata.WithMetrics(metrics))
//
// A nil *PipelineMetrics is valid and records nothing.
package observability
