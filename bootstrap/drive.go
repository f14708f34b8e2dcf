package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/metatrack/kafka"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/redis"
	"github.com/kbukum/metatrack/stream"
)

// Format returns the format of the configured track.
func (a *App) Format() metadata.Format {
	return metadata.Format{ID: a.Cfg.Pipeline.TrackID, SampleMimeType: a.Cfg.Pipeline.MimeType}
}

// PipelineOptions returns the options wiring a pipeline to this app: its
// configuration, logger, metrics and dispatch looper.
func (a *App) PipelineOptions(trackIndex int) []metadata.Option {
	opts := []metadata.Option{
		metadata.WithConfig(a.Cfg.Pipeline),
		metadata.WithTrackIndex(trackIndex),
		metadata.WithLogger(logger.Get("metadata")),
		metadata.WithMetrics(a.Metrics),
	}
	if a.Looper != nil {
		opts = append(opts, metadata.WithTarget(a.Looper))
	}
	return opts
}

// OpenSource starts reading samples from the source given with WithSource,
// or else from the configured Kafka topic. Close the returned stream when
// done.
func (a *App) OpenSource(ctx context.Context) (*stream.Buffered, error) {
	src := a.source
	if src == nil {
		if !a.Cfg.Kafka.Enabled {
			return nil, fmt.Errorf("no sample source: kafka is disabled")
		}
		ks, err := kafka.NewSource(a.Cfg.Kafka, a.Logger)
		if err != nil {
			return nil, err
		}
		src = ks
	}
	format := a.Format()
	return stream.FromIterator(ctx, src, a.Cfg.Kafka.Buffer, stream.WithFormat(format)), nil
}

// Sink returns the consumer for the app's track: consumer, the Redis
// publisher when Redis is running, or both. It returns nil when there is
// neither.
func Sink[T any](a *App, consumer metadata.Consumer[T]) metadata.Consumer[T] {
	var sinks []metadata.Consumer[T]
	if consumer != nil {
		sinks = append(sinks, consumer)
	}
	if a.Redis != nil {
		if client := a.Redis.Client(); client != nil {
			sinks = append(sinks, redis.NewPublisher[T](client, a.Cfg.Pipeline.TrackID))
		}
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return metadata.ConsumerFunc[T](func(v T) {
			for _, s := range sinks {
				s.OnMetadata(v)
			}
		})
	}
}

// Drive runs the app's track to completion. It advances the pipeline every
// pipeline.tick_interval at the position reported by clock (the WithClock
// clock or wall time from the first tick when nil) and returns when the track finishes, ctx is
// canceled or the pipeline fails. Values handed to the looper are delivered
// before Drive returns.
func Drive[T any](ctx context.Context, a *App, parser metadata.Parser[T], consumer metadata.Consumer[T], clock Clock) error {
	sink := Sink(a, consumer)
	if sink == nil {
		return fmt.Errorf("no consumer: pass one or enable redis")
	}

	p, err := metadata.New[T](parser, sink, a.PipelineOptions(a.trackIndex)...)
	if err != nil {
		return err
	}

	in, err := a.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			a.Logger.Warn("source close failed", logger.ErrorFields("close", err))
		}
	}()

	if err := p.Enable(a.Format(), in); err != nil {
		return err
	}
	defer p.Disable()

	if clock == nil {
		clock = a.clock
	}
	if clock == nil {
		clock = WallClock(time.Now())
	}
	ticker := time.NewTicker(a.Cfg.Pipeline.TickInterval)
	defer ticker.Stop()

	log := a.Logger.WithTrack(a.trackIndex, p.TrackID())
	log.Info("track started", logger.Fields(logger.FieldMimeType, a.Cfg.Pipeline.MimeType))
	for !p.IsFinished() {
		select {
		case <-ctx.Done():
			log.Info("track canceled")
			return a.flush(context.WithoutCancel(ctx))
		case <-ticker.C:
		}
		if err := p.Advance(ctx, clock()); err != nil {
			log.Error("track failed", logger.ErrorFields("advance", err))
			return err
		}
	}
	log.Info("track finished")
	return a.flush(ctx)
}

func (a *App) flush(ctx context.Context) error {
	if a.Looper == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.Cfg.Pipeline.Dispatch.StopTimeout)
	defer cancel()
	return a.Looper.Sync(ctx)
}
