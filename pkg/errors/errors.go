package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed domain error surfaced to socket clients.
type Error struct {
	Code    string `cbor:"code" json:"code"`
	Message string `cbor:"message" json:"message"`
	Err     error  `cbor:"-" json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones with a custom
// message still match the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for the booking protocol.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "invalid username or password")
	ErrAccessDenied       = New("ACCESS_DENIED", "access denied")
	ErrUnauthorized       = New("UNAUTHORIZED", "authentication required")
	ErrNoSuchProvider     = New("NO_SUCH_PROVIDER", "no such service provider")
	ErrNoSuchTimeSlot     = New("NO_SUCH_TIME_SLOT", "no such time slot")
	ErrNotAvailable       = New("NOT_AVAILABLE", "appointment is not available")
	ErrNotInYourBasket    = New("NOT_IN_YOUR_BASKET", "appointment is not in your basket")
	ErrNotReservedByYou   = New("NOT_RESERVED_BY_YOU", "appointment is not reserved by you")
	ErrEmptyBasket        = New("EMPTY_BASKET", "basket is empty")
	ErrMalformedRequest   = New("MALFORMED_REQUEST", "malformed request")
	ErrValidation         = New("VALIDATION_ERROR", "validation failed")
	ErrSessionNotFound    = New("SESSION_NOT_FOUND", "session not found")
	ErrNotFound           = New("NOT_FOUND", "resource not found")
	ErrCacheMiss          = New("CACHE_MISS", "cache miss")
	ErrInternal           = New("INTERNAL_ERROR", "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
