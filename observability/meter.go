package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys attached to pipeline measurements.
const (
	AttrTrackID  = "track.id"
	AttrDispatch = "dispatch.mode"
)

// Dispatch modes recorded on metadata.dispatched.
const (
	DispatchDirect = "direct"
	DispatchLooper = "looper"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PipelineMetrics holds the instruments a metadata pipeline records into.
type PipelineMetrics struct {
	parsed        metric.Int64Counter
	parseFailures metric.Int64Counter
	dispatched    metric.Int64Counter
	dispatchLag   metric.Int64Histogram
	resets        metric.Int64Counter
}

// NewPipelineMetrics creates pipeline instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	parsed, err := meter.Int64Counter("metadata.samples.parsed",
		metric.WithDescription("Metadata samples decoded into the pending slot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metadata.samples.parsed counter: %w", err)
	}

	parseFailures, err := meter.Int64Counter("metadata.parse.failures",
		metric.WithDescription("Metadata samples that failed to parse"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metadata.parse.failures counter: %w", err)
	}

	dispatched, err := meter.Int64Counter("metadata.dispatched",
		metric.WithDescription("Decoded metadata values released to consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metadata.dispatched counter: %w", err)
	}

	dispatchLag, err := meter.Int64Histogram("metadata.dispatch.lag",
		metric.WithDescription("Playback position minus metadata timestamp at dispatch"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metadata.dispatch.lag histogram: %w", err)
	}

	resets, err := meter.Int64Counter("metadata.resets",
		metric.WithDescription("Pipeline resets (seeks, re-enables)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metadata.resets counter: %w", err)
	}

	return &PipelineMetrics{
		parsed:        parsed,
		parseFailures: parseFailures,
		dispatched:    dispatched,
		dispatchLag:   dispatchLag,
		resets:        resets,
	}, nil
}

// RecordParsed counts a successfully decoded sample.
func (m *PipelineMetrics) RecordParsed(ctx context.Context, trackID string) {
	if m == nil {
		return
	}
	m.parsed.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTrackID, trackID)))
}

// RecordParseFailure counts a sample that could not be decoded.
func (m *PipelineMetrics) RecordParseFailure(ctx context.Context, trackID string) {
	if m == nil {
		return
	}
	m.parseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTrackID, trackID)))
}

// RecordDispatch counts a released value and how late it was released.
func (m *PipelineMetrics) RecordDispatch(ctx context.Context, trackID, mode string, lagUs int64) {
	if m == nil {
		return
	}
	m.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTrackID, trackID),
		attribute.String(AttrDispatch, mode),
	))
	m.dispatchLag.Record(ctx, lagUs, metric.WithAttributes(attribute.String(AttrTrackID, trackID)))
}

// RecordReset counts a pipeline reset.
func (m *PipelineMetrics) RecordReset(ctx context.Context, trackID string) {
	if m == nil {
		return
	}
	m.resets.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTrackID, trackID)))
}
