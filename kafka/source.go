package kafka

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/resilience"
	"github.com/kbukum/metatrack/stream"
)

// Reader is the subset of *kafkago.Reader used by Source.
type Reader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Source yields one sample per Kafka message.
type Source struct {
	reader  Reader
	cfg     Config
	log     *logger.Logger
	backoff resilience.Backoff

	failures int
	skipped  int
	ended    bool
}

var _ stream.Iterator[metadata.Sample] = (*Source)(nil)

// NewSource connects a reader for cfg.Topic.
func NewSource(cfg Config, log *logger.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka source config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}

	klog := componentLogger(log)
	rc, err := readerConfig(&cfg, klog)
	if err != nil {
		return nil, fmt.Errorf("kafka source reader: %w", err)
	}
	reader := kafkago.NewReader(rc)

	klog.Info("kafka source initialized", logger.Fields(
		logger.FieldTopic, cfg.Topic,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))
	return &Source{reader: reader, cfg: cfg, log: klog, backoff: readBackoff(&cfg)}, nil
}

// NewSourceWithReader builds a source over an existing reader.
func NewSourceWithReader(r Reader, cfg Config, log *logger.Logger) *Source {
	cfg.ApplyDefaults()
	return &Source{reader: r, cfg: cfg, log: componentLogger(log), backoff: readBackoff(&cfg)}
}

func readBackoff(cfg *Config) resilience.Backoff {
	return resilience.Backoff{
		Initial: ParseDuration(cfg.RetryBackoff),
		Max:     ParseDuration(cfg.MaxBackoff),
		Factor:  2,
		Jitter:  0.1,
	}
}

func componentLogger(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Get("kafka.source")
	}
	return log.WithComponent("kafka.source")
}

// Next implements stream.Iterator. Messages that do not map to a sample are
// logged and skipped. Retryable read errors are retried with exponential
// backoff up to cfg.Retries times in a row. Cancellation of ctx and a closed
// reader end the iteration without error.
func (s *Source) Next(ctx context.Context) (metadata.Sample, bool, error) {
	for !s.ended {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				s.ended = true
				break
			}
			if retryErr := s.handleFailure(ctx, err); retryErr != nil {
				return metadata.Sample{}, false, retryErr
			}
			continue
		}
		s.failures = 0

		sample, err := ToSample(msg, &s.cfg)
		if err != nil {
			s.skipped++
			s.log.Warn("message skipped", logger.ErrorFields("translate", err), logger.Fields(
				logger.FieldTopic, msg.Topic,
				logger.FieldPartition, msg.Partition,
				logger.FieldOffset, msg.Offset,
			))
			continue
		}
		if sample.EndOfStream {
			s.ended = true
			s.log.Info("end of stream received", logger.Fields(logger.FieldTopic, msg.Topic, logger.FieldOffset, msg.Offset))
		}
		return sample, true, nil
	}
	return metadata.Sample{}, false, nil
}

func (s *Source) handleFailure(ctx context.Context, err error) error {
	if !IsRetryableError(err) {
		s.log.Error("kafka read failed", logger.ErrorFields("read", err))
		return FromKafka(err, s.cfg.Topic)
	}
	s.failures++
	if s.failures > s.cfg.Retries {
		s.log.Error("kafka read retries exhausted", logger.ErrorFields("read", err), logger.Fields("failures", s.failures))
		return FromKafka(err, s.cfg.Topic)
	}
	s.log.Warn("kafka read error", logger.ErrorFields("read", err), logger.Fields("failures", s.failures))

	// Cancellation during the wait is picked up by the next read.
	_ = s.backoff.Wait(ctx, s.failures)
	return nil
}

// Skipped returns the number of messages that could not be mapped to samples.
func (s *Source) Skipped() int { return s.skipped }

// Topic returns the topic the source reads.
func (s *Source) Topic() string { return s.cfg.Topic }

// Close closes the reader.
func (s *Source) Close() error {
	s.log.Info("kafka source closing", logger.Fields(logger.FieldTopic, s.cfg.Topic))
	return s.reader.Close()
}
