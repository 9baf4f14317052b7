package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeScrapeFailed  = "SCRAPE_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeStorageFailed = "STORAGE_FAILED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrInvalidDate is returned when a departure date is not a YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("invalid departure date")

// InvalidDateMessage is the client-facing message for ErrInvalidDate.
const InvalidDateMessage = "Invalid date format. Use YYYY-MM-DD"

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TrackError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type TrackError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *TrackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

// NewTrackError creates a new TrackError.
func NewTrackError(code, message string, err error) *TrackError {
	return &TrackError{Code: code, Message: message, Err: err}
}

// IsScrapeFailure reports whether the error came from page loading or the
// browser session rather than from storage or input validation.
func (e *TrackError) IsScrapeFailure() bool {
	switch e.Code {
	case ErrCodeScrapeFailed, ErrCodeTimeout, ErrCodeBrowserCrash:
		return true
	}
	return false
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
// The cause is folded into the message so clients see why a scrape or
// storage operation failed.
func (e *TrackError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{Code: e.Code, Message: msg}
}
