package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeAuthentication     ErrorType = "authentication"
	ErrorTypeAuthorization      ErrorType = "authorization"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeDuplicateEmail     ErrorType = "duplicate_email"
	ErrorTypeProvider           ErrorType = "provider"
	ErrorTypeStore              ErrorType = "store"
	ErrorTypePartialConsistency ErrorType = "partial_consistency"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// TypeOf returns the error type of err, or ErrorTypeInternal when err is not
// an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewDuplicateEmailError creates an error for a registration attempt with an
// email that is already taken
func NewDuplicateEmailError(email string) *AppError {
	return &AppError{
		Type:       ErrorTypeDuplicateEmail,
		Message:    "email already exists",
		StatusCode: http.StatusConflict,
		Details:    map[string]interface{}{"email": email},
	}
}

// NewProviderError creates an error for an identity provider failure
func NewProviderError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewStoreError creates an error for a profile store failure
func NewStoreError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStore,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewPartialConsistencyError marks an operation whose authoritative provider
// write succeeded while the profile mirror write failed. The two stores
// disagree until a reconciliation pass repairs the mirror.
func NewPartialConsistencyError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypePartialConsistency,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
