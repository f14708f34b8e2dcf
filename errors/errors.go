package errors

import (
	stderrors "errors"
	"fmt"
)

// Detail keys set by the pipeline on track-scoped errors.
const (
	DetailTrackIndex = "track_index"
	DetailTrackID    = "track_id"
	DetailTimeUs     = "time_us"
	DetailMimeType   = "mime_type"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code, so sentinel
// values such as ErrParseFailed work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ForTrack tags the error with the track that owns it.
func (e *AppError) ForTrack(index int, id string) *AppError {
	e.WithDetail(DetailTrackIndex, index)
	if id != "" {
		e.WithDetail(DetailTrackID, id)
	}
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Sentinels for errors.Is matching by code.
var (
	ErrUnsupportedFormat = &AppError{Code: ErrCodeUnsupportedFormat}
	ErrParseFailed       = &AppError{Code: ErrCodeParseFailed}
	ErrStreamFailed      = &AppError{Code: ErrCodeStreamFailed}
	ErrDispatchFailed    = &AppError{Code: ErrCodeDispatchFailed}
	ErrInvalidInput      = &AppError{Code: ErrCodeInvalidInput}
	ErrNotEnabled        = &AppError{Code: ErrCodeNotEnabled}
)

// --- Common Error Constructors ---

// UnsupportedFormat creates a new AppError for a mime type no parser handles.
func UnsupportedFormat(mimeType string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported metadata format %q", mimeType),
		Details: map[string]any{DetailMimeType: mimeType},
	}
}

// ParseFailed creates a new AppError for a malformed sample payload.
func ParseFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeParseFailed, Message: "metadata sample could not be parsed",
		Cause: cause,
	}
}

// StreamFailed creates a new AppError for a failure reported by the upstream stream.
func StreamFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStreamFailed, Message: "upstream stream failed",
		Cause: cause,
	}
}

// DispatchFailed creates a new AppError for a hand-off that could not be posted.
func DispatchFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDispatchFailed, Message: "decoded metadata could not be handed off",
		Cause: cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// NotEnabled creates a new AppError for a pipeline used before a stream is attached.
func NotEnabled() *AppError {
	return &AppError{Code: ErrCodeNotEnabled, Message: "no stream enabled"}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
