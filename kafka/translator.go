package kafka

import (
	stderrors "errors"
	"fmt"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/metatrack/errors"
	"github.com/kbukum/metatrack/metadata"
)

// Default header names.
const (
	HeaderTimeUs      = "time_us"
	HeaderEndOfStream = "eos"
)

// DetailTopic is the AppError detail key holding the Kafka topic.
const DetailTopic = "topic"

// ErrMissingTime is returned for a message without a presentation time.
var ErrMissingTime = stderrors.New("kafka: message has no presentation time")

// ToSample maps a message to a sample. Headers are looked up with the names
// in cfg.
func ToSample(msg kafkago.Message, cfg *Config) (metadata.Sample, error) {
	var s metadata.Sample

	if v, ok := header(msg, cfg.EndOfStreamHeader); ok {
		eos, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("header %s: %w", cfg.EndOfStreamHeader, err)
		}
		if eos {
			s.EndOfStream = true
			return s, nil
		}
	}

	switch v, ok := header(msg, cfg.TimeHeader); {
	case ok:
		t, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("header %s: %w", cfg.TimeHeader, err)
		}
		s.TimeUs = t
	case cfg.UseMessageTime && !msg.Time.IsZero():
		s.TimeUs = msg.Time.UnixMicro()
	default:
		return s, ErrMissingTime
	}
	s.Data = msg.Value
	return s, nil
}

func header(msg kafkago.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

// FromKafka converts a read error into a STREAM_FAILED AppError.
func FromKafka(err error, topic string) *errors.AppError {
	if err == nil {
		return nil
	}
	appErr := errors.StreamFailed(err).WithDetail(DetailTopic, topic)
	appErr.Retryable = IsRetryableError(err)
	switch {
	case IsConnectionError(err):
		appErr.Message = "kafka broker unavailable"
	case IsNonRetryableError(err):
		appErr.Message = "kafka topic cannot be read"
	}
	return appErr
}
