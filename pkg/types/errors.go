package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeConnectivity ErrorType = "connectivity"
	ErrorTypeHTTP         ErrorType = "http"
	ErrorTypePayload      ErrorType = "payload"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured error in the companion app
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewConnectivityError creates a new connectivity error
func NewConnectivityError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeConnectivity,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewHTTPError creates a new HTTP status error
func NewHTTPError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeHTTP,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewPayloadError creates a new malformed payload error
func NewPayloadError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypePayload,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeHTTPStatus       = "HTTP_STATUS"
	ErrCodeBadPayload       = "BAD_PAYLOAD"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)
