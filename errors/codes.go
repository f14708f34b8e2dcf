package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Negotiation errors
const (
	// ErrCodeUnsupportedFormat indicates a track format no parser can handle.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
)

// Track processing errors (fatal for the owning track)
const (
	// ErrCodeParseFailed indicates a sample payload could not be decoded.
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"
	// ErrCodeStreamFailed indicates the upstream stream reported a failure.
	ErrCodeStreamFailed ErrorCode = "STREAM_FAILED"
	// ErrCodeDispatchFailed indicates a decoded value could not be handed off
	// to its target execution context.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"
)

// Usage errors
const (
	// ErrCodeInvalidInput indicates an invalid argument or configuration.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotEnabled indicates an operation on a pipeline with no stream attached.
	ErrCodeNotEnabled ErrorCode = "NOT_ENABLED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Nothing in the pipeline is retried: a malformed sample is lost, and a
// stream failure ends the track.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeStreamFailed: false,
	ErrCodeParseFailed:  false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
