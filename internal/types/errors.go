package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Services return these instead of ad-hoc strings so
// jobs can classify per-item failures and the API layer can map statuses.
const (
	// Validation (400)
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationUnknownEnum  ErrorCode = "validation_unknown_enum_value"
	ErrCodeValidationInvalidJSON  ErrorCode = "validation_invalid_json"

	// Credential lifecycle
	ErrCodeNotConnected      ErrorCode = "credential_not_connected"
	ErrCodeRefreshFailed     ErrorCode = "credential_refresh_failed"
	ErrCodeAuthStateInvalid  ErrorCode = "credential_auth_state_invalid"
	ErrCodeAuthCodeExchange  ErrorCode = "credential_code_exchange_failed"

	// Not Found (404)
	ErrCodeNotFoundUser        ErrorCode = "not_found_user"
	ErrCodeNotFoundClient      ErrorCode = "not_found_client"
	ErrCodeNotFoundAppointment ErrorCode = "not_found_appointment"
	ErrCodeNotFoundJob         ErrorCode = "not_found_job"

	// Conflict (409)
	ErrCodeConflictMirrored ErrorCode = "conflict_already_mirrored"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalCrypto      ErrorCode = "internal_crypto_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamCalendar    ErrorCode = "upstream_calendar_unavailable"
	ErrCodeUpstreamMail        ErrorCode = "upstream_mail_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"

	// Job inconsistencies: an item referencing a missing client or user.
	// Logged as a warning and skipped, never fatal to the run.
	ErrCodeDataInconsistency ErrorCode = "data_inconsistency"
)

// HTTPStatus maps an ErrorCode to its HTTP status. Used only at the API
// boundary; jobs never surface errors synchronously to users.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case c == ErrCodeNotConnected:
		return http.StatusNotFound
	case c == ErrCodeRefreshFailed, c == ErrCodeAuthStateInvalid, c == ErrCodeAuthCodeExchange:
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case c == ErrCodeUpstreamRateLimited:
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. Domain and infrastructure
// errors are expressed as AppError so callers can classify them with
// errors.As and the API layer can render them consistently.
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

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
