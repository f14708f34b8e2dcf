package metadata

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/metatrack/config"
	"github.com/kbukum/metatrack/dispatch"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/observability"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	target     *dispatch.Looper
	keepStale  bool
	trackIndex int
	trackID    string
	log        *logger.Logger
	metrics    *observability.PipelineMetrics
	tracer     trace.Tracer
}

// WithTarget runs the consumer on looper instead of the goroutine calling
// Advance.
func WithTarget(looper *dispatch.Looper) Option {
	return func(o *options) { o.target = looper }
}

// WithStaleDelivery keeps delivering values that were handed to the target
// looper before a Reset. By default they are dropped.
func WithStaleDelivery() Option {
	return func(o *options) { o.keepStale = true }
}

// WithTrackIndex sets the renderer index reported in errors and logs.
func WithTrackIndex(index int) Option {
	return func(o *options) { o.trackIndex = index }
}

// WithTrackID sets the track identifier reported in errors, logs and metrics.
func WithTrackID(id string) Option {
	return func(o *options) { o.trackID = id }
}

// WithLogger sets the logger. Track fields are added by the pipeline.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records pipeline measurements into m.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer traces each parse with t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithConfig applies loaded pipeline configuration.
func WithConfig(cfg config.PipelineConfig) Option {
	return func(o *options) {
		if cfg.TrackID != "" {
			o.trackID = cfg.TrackID
		}
		o.keepStale = cfg.KeepStale
	}
}
