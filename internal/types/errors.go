package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants. Handlers and pipeline stages use these
// constants instead of hardcoded strings.
const (
	// Validation (400): malformed inbound events or request parameters.
	// At the intake boundary these are terminal: the message is logged,
	// counted, and acknowledged without forwarding.
	ErrCodeValidationMissingEvent    ErrorCode = "validation_missing_event"
	ErrCodeValidationMissingOrderID  ErrorCode = "validation_missing_order_id"
	ErrCodeValidationMissingCustomer ErrorCode = "validation_missing_customer_id"
	ErrCodeValidationInvalidEmail    ErrorCode = "validation_invalid_email"
	ErrCodeValidationMissingStatus   ErrorCode = "validation_missing_order_status"
	ErrCodeValidationInvalidStatus   ErrorCode = "validation_invalid_status"
	ErrCodeValidationInvalidOrderID  ErrorCode = "validation_invalid_order_id"

	// Not Found (404)
	ErrCodeNotFoundEmail ErrorCode = "not_found_email"

	// Conflict (409). A unique-constraint hit on record creation is mapped
	// to ErrCodeConflictDuplicateDispatch and treated as a no-op, never as
	// a failure; it is the idempotency mechanism firing.
	ErrCodeConflictDuplicateDispatch ErrorCode = "conflict_duplicate_dispatch"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeInternalTemplate   ErrorCode = "internal_template_error"

	// Transport failures are retryable within the bounded retry budget and
	// absorbed by the resweep mechanism thereafter.
	ErrCodeUpstreamMailProvider ErrorCode = "upstream_mail_provider_unavailable"
	ErrCodeUpstreamRateLimited  ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable  ErrorCode = "upstream_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the read API to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// IsRetryable reports whether an error with this code represents a transient
// condition worth another transport attempt. Only upstream transport failures
// qualify; validation, duplicate-dispatch, and persistence errors do not.
func (c ErrorCode) IsRetryable() bool {
	return strings.HasPrefix(string(c), "upstream_")
}

// AppError is the standard application error type used throughout the service.
// All domain errors are expressed as AppError to enable consistent error
// formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
