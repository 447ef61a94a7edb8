// Package errors defines the coded errors shared by stores, the action
// service and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a todo error.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION" // 400
	ErrNotFound   ErrorCode = "NOT_FOUND"  // 404
	ErrConflict   ErrorCode = "CONFLICT"   // 409
	ErrStorage    ErrorCode = "STORAGE"    // 500
)

// TodoError is a structured error with code, HTTP status and an optional cause.
type TodoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *TodoError) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TodoError) Unwrap() error {
	return e.Err
}

// NewValidation creates a 400 error for rejected user input.
func NewValidation(reason string) *TodoError {
	return &TodoError{
		Code:    ErrValidation,
		Status:  http.StatusBadRequest,
		Message: reason,
	}
}

// NewNotFound creates a 404 error for a record that no longer exists.
func NewNotFound(id string) *TodoError {
	return &TodoError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("todo not found: %s", id),
	}
}

// NewConflict creates a 409 error, e.g. for a duplicate id on create.
func NewConflict(msg string) *TodoError {
	return &TodoError{
		Code:    ErrConflict,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

// NewStorage wraps a failure of the underlying storage medium.
// Errors that are already coded are returned unchanged.
func NewStorage(op string, err error) *TodoError {
	var te *TodoError
	if stderrors.As(err, &te) {
		return te
	}
	return &TodoError{
		Code:    ErrStorage,
		Status:  http.StatusInternalServerError,
		Message: "storage unavailable",
		Op:      op,
		Err:     err,
	}
}

// Is reports whether err is (or wraps) a TodoError with the given code.
func Is(err error, code ErrorCode) bool {
	var te *TodoError
	if stderrors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, 500 for uncoded errors.
func StatusOf(err error) int {
	var te *TodoError
	if stderrors.As(err, &te) && te.Status != 0 {
		return te.Status
	}
	return http.StatusInternalServerError
}

// Reason returns the user-facing message of a coded error, or a generic one.
func Reason(err error) string {
	var te *TodoError
	if stderrors.As(err, &te) {
		return te.Message
	}
	return "unexpected error"
}
