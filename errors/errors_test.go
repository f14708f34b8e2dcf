package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeParseFailed, "bad payload")
	if err.Code != ErrCodeParseFailed {
		t.Errorf("expected code %s, got %s", ErrCodeParseFailed, err.Code)
	}
	if err.Message != "bad payload" {
		t.Errorf("expected message 'bad payload', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("PARSE_FAILED should not be retryable")
	}
}

func TestAppError_ParseFailed_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("truncated frame")
	err := ParseFailed(cause)
	if err.Code != ErrCodeParseFailed {
		t.Errorf("expected PARSE_FAILED, got %s", err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if err.Retryable {
		t.Error("ParseFailed should not be retryable")
	}
}

func TestAppError_StreamFailed(t *testing.T) {
	err := StreamFailed(fmt.Errorf("eof"))
	if err.Code != ErrCodeStreamFailed {
		t.Errorf("expected STREAM_FAILED, got %s", err.Code)
	}
}

func TestAppError_UnsupportedFormat(t *testing.T) {
	err := UnsupportedFormat("video/avc")
	if err.Details[DetailMimeType] != "video/avc" {
		t.Errorf("expected mime_type detail, got %v", err.Details[DetailMimeType])
	}
	if !strings.Contains(err.Error(), "video/avc") {
		t.Errorf("expected mime type in message, got %q", err.Error())
	}
}

func TestAppError_ForTrack(t *testing.T) {
	err := ParseFailed(nil).ForTrack(3, "meta-0")
	if err.Details[DetailTrackIndex] != 3 {
		t.Errorf("expected track_index=3, got %v", err.Details[DetailTrackIndex])
	}
	if err.Details[DetailTrackID] != "meta-0" {
		t.Errorf("expected track_id=meta-0, got %v", err.Details[DetailTrackID])
	}

	noID := ParseFailed(nil).ForTrack(1, "")
	if _, ok := noID.Details[DetailTrackID]; ok {
		t.Error("expected no track_id detail when id is empty")
	}
}

func TestAppError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("advance: %w", ParseFailed(fmt.Errorf("x")).ForTrack(0, ""))
	if !stderrors.Is(err, ErrParseFailed) {
		t.Error("expected wrapped parse failure to match ErrParseFailed")
	}
	if stderrors.Is(err, ErrStreamFailed) {
		t.Error("parse failure must not match ErrStreamFailed")
	}
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("parser", "must not be nil")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "parser" {
		t.Errorf("expected field=parser, got %v", err.Details["field"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NotEnabled().WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := UnsupportedFormat("text/vtt").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details[DetailMimeType] != "text/vtt" {
		t.Error("expected original details to be preserved")
	}
}

func TestAppError_WithDetails_Nil(t *testing.T) {
	err := Internal(nil).WithDetails(nil)
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized even with nil input")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	s := NotEnabled().Error()
	if !strings.Contains(s, "NOT_ENABLED") {
		t.Errorf("expected error string to contain code, got %q", s)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("plain"), ""},
		{"direct", DispatchFailed(nil), ErrCodeDispatchFailed},
		{"wrapped", fmt.Errorf("ctx: %w", StreamFailed(nil)), ErrCodeStreamFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
	if !IsCode(Validation("x"), ErrCodeInvalidInput) {
		t.Error("expected Validation to carry INVALID_INPUT")
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error is not an AppError")
	}
	if !IsAppError(fmt.Errorf("w: %w", Internal(nil))) {
		t.Error("expected wrapped AppError to be detected")
	}
}
