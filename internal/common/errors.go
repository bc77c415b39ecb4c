package common

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of errors in the gateway
type ErrorCode int

const (
	// General errors
	ErrInternal ErrorCode = iota + 1000
	ErrInvalidArgument
	ErrNotFound
	ErrTimeout

	// Remote collaborator errors
	ErrRemoteConflict ErrorCode = iota + 2000
	ErrRemoteUnavailable
	ErrRemoteRejected

	// Authentication errors
	ErrUnauthorized ErrorCode = iota + 3000
	ErrForbidden
	ErrInvalidToken
	ErrTokenExpired
)

// GatewayError represents an error in the gateway
type GatewayError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewError creates a new GatewayError
func NewError(code ErrorCode, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewErrorWithCause creates a new GatewayError with an underlying cause
func NewErrorWithCause(code ErrorCode, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *GatewayError) WithContext(key string, value interface{}) *GatewayError {
	e.Context[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Code == code
	}
	return false
}

// Common error constructors
func ErrInternalError(message string) *GatewayError {
	return NewError(ErrInternal, message)
}

func ErrInvalidArgumentError(message string) *GatewayError {
	return NewError(ErrInvalidArgument, message)
}

func ErrNotFoundError(message string) *GatewayError {
	return NewError(ErrNotFound, message)
}

func ErrRemoteConflictError(message string) *GatewayError {
	return NewError(ErrRemoteConflict, message)
}

func ErrRemoteUnavailableError(message string, cause error) *GatewayError {
	return NewErrorWithCause(ErrRemoteUnavailable, message, cause)
}

func ErrUnauthorizedError(message string) *GatewayError {
	return NewError(ErrUnauthorized, message)
}

func ErrParticipantNotFoundError(participantID string) *GatewayError {
	return NewError(ErrNotFound, fmt.Sprintf("participant not found: %s", participantID))
}

func ErrTenantNotFoundError(tenantID string) *GatewayError {
	return NewError(ErrNotFound, fmt.Sprintf("tenant not found: %s", tenantID))
}
