package kafka

import (
	"errors"
	"fmt"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/metatrack/errors"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("something else"), false},
		{errors.New("connection refused"), true},
		{errors.New("Connection Reset by peer"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("dial tcp 127.0.0.1:9092"), true},
		{errors.New("leader not available"), true},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.want {
				t.Errorf("IsConnectionError(%q) = %v, want %v", name, got, tt.want)
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection", errors.New("dial tcp: connection refused"), true},
		{"temporary text", errors.New("temporary failure"), true},
		{"kafka temporary", kafkago.LeaderNotAvailable, true},
		{"kafka wrapped", fmt.Errorf("fetch: %w", kafkago.RequestTimedOut), true},
		{"kafka permanent", kafkago.UnknownTopicOrPartition, false},
		{"message too large", errors.New("message too large"), false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNonRetryableError(t *testing.T) {
	if !IsNonRetryableError(kafkago.TopicAuthorizationFailed) {
		t.Error("authorization failure should not be retried")
	}
	if !IsNonRetryableError(errors.New("Unknown Topic requested")) {
		t.Error("unknown topic text should not be retried")
	}
	if IsNonRetryableError(nil) || IsNonRetryableError(errors.New("i/o timeout")) {
		t.Error("unexpected non-retryable classification")
	}
}

func TestFromKafka(t *testing.T) {
	if FromKafka(nil, "cues") != nil {
		t.Fatal("expected nil for nil error")
	}

	err := FromKafka(errors.New("dial tcp: connection refused"), "cues")
	if err.Code != apperrors.ErrCodeStreamFailed {
		t.Errorf("code = %s, want STREAM_FAILED", err.Code)
	}
	if !err.Retryable {
		t.Error("connection errors should be retryable")
	}
	if err.Details[DetailTopic] != "cues" {
		t.Errorf("topic detail = %v", err.Details[DetailTopic])
	}

	err = FromKafka(kafkago.UnknownTopicOrPartition, "cues")
	if err.Retryable {
		t.Error("unknown topic should not be retryable")
	}
	if !errors.Is(err, kafkago.UnknownTopicOrPartition) {
		t.Error("cause should be preserved")
	}
}
