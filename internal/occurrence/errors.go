package occurrence

import (
	"errors"
	"fmt"
)

// ErrorCode classifies errors for the transport layer.
type ErrorCode string

const (
	CodeNotFound ErrorCode = "NOT_FOUND"
	CodeInvalid  ErrorCode = "INVALID"
)

// Error is a classified reconciler error.
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

// Is matches on code and message so wrapped copies of the sentinels below
// still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func wrap(sentinel *Error, err error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

var (
	ErrTaskNotFound          = &Error{Code: CodeNotFound, Message: "Task not found"}
	ErrNotRecurring          = &Error{Code: CodeInvalid, Message: "Task is not recurring"}
	ErrMissingDueDate        = &Error{Code: CodeInvalid, Message: "Recurring task has no due date"}
	ErrInvalidRecurrenceType = &Error{Code: CodeInvalid, Message: "Invalid recurrence type"}
	ErrInvalidDate           = &Error{Code: CodeInvalid, Message: "Invalid date"}
)

// HasCode reports whether err is a reconciler error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
