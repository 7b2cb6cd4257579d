package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrClientNotFound   = NewError(ErrCodeNotFound, "client not found")
	ErrReminderNotFound = NewError(ErrCodeNotFound, "reminder not found")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidDueDate   = NewError(ErrCodeInvalid, "invalid due date")
	ErrInvalidDueTime   = NewError(ErrCodeInvalid, "invalid due time")
	ErrInvalidFrequency = NewError(ErrCodeInvalid, "invalid frequency")
	ErrEmptyDescription = NewError(ErrCodeInvalid, "description is required")
	ErrEmptyClientName  = NewError(ErrCodeInvalid, "client name is required")
	ErrNoRecipient      = NewError(ErrCodeInvalid, "no recipient address")
	ErrInvalidEmail     = NewError(ErrCodeInvalid, "invalid email address")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
