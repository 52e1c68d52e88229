// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Configuration and surface errors use AppError; failures returned by
// intercepted target methods are never converted.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal    = "INTERNAL_ERROR"
	CodeTxBegin     = "TX_BEGIN_FAILED"
	CodeTxCommit    = "TX_COMMIT_FAILED"
	CodeUnavailable = "UNAVAILABLE"

	// Configuration errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidPointcut = "INVALID_POINTCUT"
	CodeUnknownMethod   = "UNKNOWN_METHOD"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the module.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (target, method, expression, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInvalidPointcut creates an error for a pointcut expression that cannot be used.
func NewInvalidPointcut(expr string, cause error) *AppError {
	return &AppError{
		Code:       CodeInvalidPointcut,
		Message:    "Pointcut expression is invalid",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"expr": expr},
		Err:        cause,
	}
}

// NewUnknownMethod creates an error for configuration naming a method the target lacks.
func NewUnknownMethod(target, method string) *AppError {
	return &AppError{
		Code:       CodeUnknownMethod,
		Message:    fmt.Sprintf("%s has no method %s", target, method),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"target": target, "method": method},
	}
}

// NewTxBegin wraps a failure to open a transaction.
func NewTxBegin(name string, err error) *AppError {
	return &AppError{
		Code:       CodeTxBegin,
		Message:    "Could not begin transaction",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"tx": name},
		Err:        err,
	}
}

// NewTxCommit wraps a failure to commit a transaction.
func NewTxCommit(name string, err error) *AppError {
	return &AppError{
		Code:       CodeTxCommit,
		Message:    "Could not commit transaction",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"tx": name},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInvalidPointcut checks if error is CodeInvalidPointcut
func IsInvalidPointcut(err error) bool {
	return hasCode(err, CodeInvalidPointcut)
}

// IsUnknownMethod checks if error is CodeUnknownMethod
func IsUnknownMethod(err error) bool {
	return hasCode(err, CodeUnknownMethod)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
