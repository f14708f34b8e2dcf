package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span names used by the pipeline.
const (
	SpanParse = "metadata.parse"
)

// Span attribute keys used by the pipeline.
const (
	AttrTimeUs       = "metadata.time_us"
	AttrSize         = "metadata.size"
	AttrMimeType     = "metadata.mime_type"
	AttrErrorMessage = "error.message"
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Sampler maps a sample rate onto a parent-based sampler, so a parse inside
// a traced request is always kept.
func Sampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// StartParse starts the span around decoding one sample.
func StartParse(ctx context.Context, tracer trace.Tracer, timeUs int64, size int, mimeType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanParse, trace.WithAttributes(
		attribute.Int64(AttrTimeUs, timeUs),
		attribute.Int(AttrSize, size),
		attribute.String(AttrMimeType, mimeType),
	))
}

// SetSpanError records err on span and marks it failed.
func SetSpanError(span trace.Span, err error) {
	if span == nil || !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}
