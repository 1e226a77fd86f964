package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// ErrorType represents the broad category of an error
type ErrorType string

const (
	// Transport errors
	ErrorTypeNetwork ErrorType = "NETWORK"
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// Remote API errors
	ErrorTypeClient ErrorType = "CLIENT"
	ErrorTypeServer ErrorType = "SERVER"

	// Local errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeCorrupt    ErrorType = "CORRUPT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
	ErrorTypeShutdown   ErrorType = "SHUTDOWN"
)

// Classification codes carried by fetcher errors. A code is either one of
// the symbolic constants below or an HTTP-status-shaped string ("404",
// "503", ...). Retry policy looks only at the code.
const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeTimeout      = "TIMEOUT"
)

// AppError represents a classified application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code,omitempty"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode overrides the classification code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewNetworkError creates a retryable transport error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Code:       CodeNetworkError,
		Message:    message,
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Code:       CodeTimeout,
		Message:    fmt.Sprintf("operation '%s' timed out", operation),
		HTTPStatus: http.StatusRequestTimeout,
	}
}

// NewValidationError creates a validation error, never retried
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       strconv.Itoa(http.StatusBadRequest),
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       strconv.Itoa(http.StatusNotFound),
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewCorruptPayloadError reports an undecodable cached payload. The cache
// logs it and serves a miss; it never reaches callers.
func NewCorruptPayloadError(key string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeCorrupt,
		Message: fmt.Sprintf("cached payload for '%s' could not be decoded", key),
		Cause:   err,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewShutdownError reports an operation abandoned because its owner closed
func NewShutdownError(component string) *AppError {
	return &AppError{
		Type:    ErrorTypeShutdown,
		Message: fmt.Sprintf("%s is shutting down", component),
	}
}

// FromHTTPStatus classifies a non-2xx response status. The code carries the
// status itself so retry policy can distinguish 5xx from 4xx and 501.
func FromHTTPStatus(status int, message string) *AppError {
	errType := ErrorTypeClient
	if status >= http.StatusInternalServerError {
		errType = ErrorTypeServer
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &AppError{
		Type:       errType,
		Code:       strconv.Itoa(status),
		Message:    message,
		HTTPStatus: status,
	}
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsShutdown checks if an error is a shutdown error
func IsShutdown(err error) bool {
	return IsType(err, ErrorTypeShutdown)
}

// IsRetryable reports whether a failed fetch may be attempted again.
// Network and timeout failures are always retryable; server errors (5xx)
// are retryable except 501 Not Implemented; client errors (4xx) and any
// unclassified application error are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if appErr := GetAppError(err); appErr != nil {
		switch appErr.Code {
		case CodeNetworkError, CodeTimeout:
			return true
		}
		if status, convErr := strconv.Atoi(appErr.Code); convErr == nil {
			return status >= http.StatusInternalServerError &&
				status != http.StatusNotImplemented
		}
		return false
	}

	// Raw transport errors from net/http arrive unclassified.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Code returns the classification code of an error, or empty when the
// error carries none.
func Code(err error) string {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code
	}
	return ""
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
