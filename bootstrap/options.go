package bootstrap

import (
	"time"

	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/stream"
)

// Clock returns the playback position in microseconds.
type Clock func() int64

// WallClock returns a clock that advances with real time from start.
func WallClock(start time.Time) Clock {
	return func() int64 { return time.Since(start).Microseconds() }
}

// Option configures the App during creation.
type Option func(*App)

// WithLogger replaces the logger built from the logging section. Component
// loggers are derived from it.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithGracefulTimeout bounds shutdown: stop hooks, the looper drain and the
// telemetry flush. The default is 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.gracefulTimeout = d
		}
	}
}

// WithSource reads samples from src instead of the configured Kafka topic.
func WithSource(src stream.Iterator[metadata.Sample]) Option {
	return func(a *App) { a.source = src }
}

// WithClock sets the playback clock Drive uses when it is given none.
func WithClock(c Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithTrackIndex sets the renderer index of the app's track, reported in
// errors and logs. The default is 0.
func WithTrackIndex(index int) Option {
	return func(a *App) { a.trackIndex = index }
}
