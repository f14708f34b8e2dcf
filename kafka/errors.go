package kafka

import (
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
}

var nonRetryablePatterns = []string{
	"message too large",
	"invalid topic",
	"unknown topic",
	"authorization failed",
	"sasl authentication failed",
}

// IsConnectionError reports whether err is a broker connection failure.
func IsConnectionError(err error) bool {
	return matches(err, connectionPatterns)
}

// IsRetryableError reports whether a read that failed with err may succeed
// when repeated.
func IsRetryableError(err error) bool {
	if err == nil || IsNonRetryableError(err) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary() || kerr.Timeout()
	}
	return IsConnectionError(err) || matches(err, []string{"temporary", "request timed out"})
}

// IsNonRetryableError reports whether err will not go away on retry.
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, kafkago.UnknownTopicOrPartition),
		errors.Is(err, kafkago.TopicAuthorizationFailed),
		errors.Is(err, kafkago.GroupAuthorizationFailed),
		errors.Is(err, kafkago.SASLAuthenticationFailed):
		return true
	}
	return matches(err, nonRetryablePatterns)
}

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
