// Package errors provides custom error types and error handling utilities.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error codes.
const (
	// Caller errors.
	CodeValidation      = "VALIDATION_ERROR"
	CodeConfiguration   = "CONFIGURATION_ERROR"
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"

	// Backend errors.
	CodeRateLimited     = "RATE_LIMITED"
	CodeTransport       = "TRANSPORT_ERROR"
	CodeBackendQuery    = "BACKEND_QUERY_ERROR"
	CodeMalformedResult = "MALFORMED_RESULT"

	CodeInternal = "INTERNAL_ERROR"
)

// Detail keys used across packages.
const (
	DetailStatus     = "status"
	DetailBody       = "body"
	DetailKind       = "kind"
	DetailRetryAfter = "retry_after"
	DetailIndex      = "index"
)

// KindTimeout marks a transport failure caused by a deadline.
const KindTimeout = "timeout"

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the operation later.
// Nothing in this module retries on its own.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeRateLimited:
		return true
	case CodeTransport:
		return e.Details[DetailKind] == KindTimeout
	default:
		return false
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// ConfigurationError creates an error for a missing or invalid setting.
func ConfigurationError(message string) *AppError {
	return New(CodeConfiguration, message)
}

// RateLimitedError creates a rate limited error. retryAfter is the raw
// Retry-After header value and may be empty.
func RateLimitedError(retryAfter string) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded, please wait before retrying")
	if retryAfter != "" {
		err = err.WithDetail(DetailRetryAfter, retryAfter)
	}
	return err
}

// HTTPStatusError creates a transport error for a non-success HTTP response.
func HTTPStatusError(status int, body string) *AppError {
	msg := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}
	return New(CodeTransport, msg).
		WithDetail(DetailStatus, strconv.Itoa(status)).
		WithDetail(DetailBody, body)
}

// TransportError wraps a network-level failure.
func TransportError(message string, err error) *AppError {
	return Wrap(CodeTransport, message, err)
}

// TimeoutError creates a transport error for an operation that hit its deadline.
func TimeoutError(operation string, err error) *AppError {
	message := "request timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return Wrap(CodeTransport, message, err).WithDetail(DetailKind, KindTimeout)
}

// BackendQueryError creates an error for logical errors reported by the backend.
func BackendQueryError(messages []string) *AppError {
	return New(CodeBackendQuery, "GraphQL errors: "+strings.Join(messages, "; "))
}

// MalformedResultError creates an error for a result record that cannot be normalized.
func MalformedResultError(message string) *AppError {
	return New(CodeMalformedResult, message)
}

// AccountNotFoundError creates an error naming every account that was available.
func AccountNotFoundError(name string, available []string) *AppError {
	return New(CodeAccountNotFound, fmt.Sprintf("account '%s' not found. Available accounts: %s",
		name, strings.Join(available, ", ")))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or CodeInternal for foreign errors.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

func hasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsConfiguration checks if error is a configuration error.
func IsConfiguration(err error) bool { return hasCode(err, CodeConfiguration) }

// IsRateLimited checks if error is a rate limited error.
func IsRateLimited(err error) bool { return hasCode(err, CodeRateLimited) }

// IsTransport checks if error is a transport error (including timeouts).
func IsTransport(err error) bool { return hasCode(err, CodeTransport) }

// IsTimeout checks if error is a transport error caused by a deadline.
func IsTimeout(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeTransport && appErr.Details[DetailKind] == KindTimeout
}

// IsBackendQuery checks if error is a backend-reported query error.
func IsBackendQuery(err error) bool { return hasCode(err, CodeBackendQuery) }

// IsMalformedResult checks if error is a malformed result error.
func IsMalformedResult(err error) bool { return hasCode(err, CodeMalformedResult) }

// IsAccountNotFound checks if error is an account-not-found error.
func IsAccountNotFound(err error) bool { return hasCode(err, CodeAccountNotFound) }
