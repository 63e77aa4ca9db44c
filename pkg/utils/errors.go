package utils

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindRateLimited    ErrorKind = "rate_limited"
	KindAuthentication ErrorKind = "authentication"
	KindForbidden      ErrorKind = "forbidden"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindInfrastructure ErrorKind = "infrastructure"
)

// AppError carries a caller-safe Message; Err holds the underlying cause for logs only.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Reason     string
	RetryAfter time.Duration
	Fields     map[string]string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

func NewRateLimitedError(message string, retryAfter time.Duration) *AppError {
	return &AppError{Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}

// NewAuthenticationError keeps message generic; reason is a machine-readable hint
// (expired, invalid_code, ...) the client uses to pick retry guidance.
func NewAuthenticationError(message, reason string) *AppError {
	return &AppError{Kind: KindAuthentication, Message: message, Reason: reason}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewInfrastructureError(message string, err error) *AppError {
	return &AppError{Kind: KindInfrastructure, Message: message, Err: err}
}

// ErrorKindOf returns the kind of err, treating unknown errors as infrastructure.
func ErrorKindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && ErrorKindOf(err) == kind
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(kind ErrorKind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
