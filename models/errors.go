package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in run reports, API responses and exit handling.
const (
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeNavigationTimeout  = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeLandingNotVerified = "LANDING_NOT_VERIFIED"
	ErrCodeExtraction         = "EXTRACTION_FAILED"
	ErrCodeEmptyValue         = "EMPTY_VALUE"
	ErrCodeTimeout            = "RUN_TIMEOUT"
	ErrCodeBrowserCrash       = "BROWSER_CRASH"
	ErrCodePreflight          = "PREFLIGHT_FAILED"

	// API-only codes.
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in reports and API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunError is the internal error type carrying an error code.
// Every RunError returned by a scenario step ends the run.
type RunError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(code, message string, err error) *RunError {
	return &RunError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *RunError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsRunError returns err as a *RunError. Context deadline and cancellation
// become RUN_TIMEOUT; anything else is wrapped with fallbackCode.
func AsRunError(err error, fallbackCode, msg string) *RunError {
	if err == nil {
		return nil
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewRunError(ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewRunError(ErrCodeTimeout, "run canceled", err)
	default:
		return NewRunError(fallbackCode, msg, err)
	}
}
