package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeQuota          ErrorType = "quota"
)

// AccessError represents a structured error raised by the access-control layer
type AccessError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AccessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AccessError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *AccessError {
	return &AccessError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string) *AccessError {
	return &AccessError{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *AccessError {
	return &AccessError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *AccessError {
	return &AccessError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *AccessError {
	return &AccessError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewExternalError wraps a network or upstream failure
func NewExternalError(code, message string, cause error) *AccessError {
	return &AccessError{
		Type:    ErrorTypeExternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *AccessError {
	return &AccessError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewQuotaError reports a user-creation quota ceiling being reached
func NewQuotaError(code, message string, details map[string]interface{}) *AccessError {
	return &AccessError{
		Type:    ErrorTypeQuota,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err (or anything it wraps) is an AccessError of type t
func IsType(err error, t ErrorType) bool {
	var accessErr *AccessError
	return errors.As(err, &accessErr) && accessErr.Type == t
}

// HTTPStatus maps err to the status code handlers answer with. Errors that
// are not AccessErrors are internal.
func HTTPStatus(err error) int {
	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		return http.StatusInternalServerError
	}
	switch accessErr.Type {
	case ErrorTypeValidation:
		if accessErr.Code == ErrCodeUnknownPermissionKey {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeAuthorization:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict, ErrorTypeQuota:
		return http.StatusConflict
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeExternalError        = "EXTERNAL_ERROR"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeUnknownPermissionKey = "UNKNOWN_PERMISSION_KEY"
	ErrCodeQuotaExceeded        = "QUOTA_EXCEEDED"
	ErrCodeSaveInProgress       = "SAVE_IN_PROGRESS"
	ErrCodeUserExists           = "USER_EXISTS"
)
