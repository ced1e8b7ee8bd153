package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Is reports whether target carries the same code, so clones match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrPartialPropagation = New("PARTIAL_PROPAGATION", http.StatusConflict, "operation partially applied")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var partial *PartialError
	if errors.As(err, &partial) {
		return partial.AsError()
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
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

// PartialError reports a fan-out of single-row writes that stopped partway.
// Completed writes are not rolled back.
type PartialError struct {
	Operation string
	Completed int
	Total     int
	Err       error
}

// NewPartial builds a PartialError for the named operation.
func NewPartial(operation string, completed, total int, cause error) *PartialError {
	return &PartialError{Operation: operation, Completed: completed, Total: total, Err: cause}
}

func (e *PartialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s applied %d/%d: %v", e.Operation, e.Completed, e.Total, e.Err)
	}
	return fmt.Sprintf("%s applied %d/%d", e.Operation, e.Completed, e.Total)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPartialPropagation) match.
func (e *PartialError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t != nil && t.Code == ErrPartialPropagation.Code
}

// AsError converts the partial failure into the response error shape.
func (e *PartialError) AsError() *Error {
	msg := fmt.Sprintf("%s applied to %d of %d records", e.Operation, e.Completed, e.Total)
	return Wrap(e.Err, ErrPartialPropagation.Code, ErrPartialPropagation.Status, msg)
}
