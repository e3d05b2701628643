// Package errors defines the service error type returned to HTTP clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes carried in JSON error bodies.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeForbidden         = "FORBIDDEN"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

// ServiceError is an error with an HTTP status and a machine-readable code.
type ServiceError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetail attaches a detail field and returns e.
func (e *ServiceError) WithDetail(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a ServiceError.
func New(code string, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

func BadRequest(message string) *ServiceError {
	return New(CodeBadRequest, http.StatusBadRequest, message)
}

func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource)).WithDetail("id", id)
}

func Conflict(message string) *ServiceError {
	return New(CodeConflict, http.StatusConflict, message)
}

func Forbidden(message string) *ServiceError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

func Unavailable(message string) *ServiceError {
	return New(CodeUnavailable, http.StatusServiceUnavailable, message)
}

func MethodNotAllowed(method, path string) *ServiceError {
	return New(CodeMethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed").
		WithDetail("method", method).
		WithDetail("path", path)
}

// RateLimitExceeded reports that a client exceeded limit requests per window.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded").
		WithDetail("limit", limit).
		WithDetail("window", window)
}

// Internal wraps err as a 500. The cause is never sent to clients.
func Internal(message string, err error) *ServiceError {
	se := New(CodeInternal, http.StatusInternalServerError, message)
	se.Err = err
	return se
}

// As returns the ServiceError in err's chain, if any.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}
