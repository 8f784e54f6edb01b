package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies session failures.
type ErrorCode string

const (
	ErrorCodeConfig            ErrorCode = "config"
	ErrorCodeCapture           ErrorCode = "capture"
	ErrorCodeRecordingTooShort ErrorCode = "recording_too_short"
	ErrorCodeConnectivity      ErrorCode = "connectivity"
	ErrorCodeRateLimited       ErrorCode = "rate_limited"
	ErrorCodeNoSpeech          ErrorCode = "no_speech"
	ErrorCodeTranscription     ErrorCode = "transcription"
	ErrorCodeDelivery          ErrorCode = "delivery"
)

// Error is a classified session error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the classification of err, or "" when err is not classified.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConnectivity reports whether err is a transport-level failure.
func IsConnectivity(err error) bool { return CodeOf(err) == ErrorCodeConnectivity }

// IsNoSpeech reports whether err means the transcript came back empty.
func IsNoSpeech(err error) bool { return CodeOf(err) == ErrorCodeNoSpeech }

// IsRateLimited reports whether err is a rate-limit condition.
func IsRateLimited(err error) bool { return CodeOf(err) == ErrorCodeRateLimited }
