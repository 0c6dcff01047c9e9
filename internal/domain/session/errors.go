package session

import (
	"errors"
	"fmt"
)

// Code classifies a recoverable command failure.
type Code string

const (
	CodeInvalidClass   Code = "INVALID_CLASS"
	CodeInvalidPath    Code = "INVALID_PATH"
	CodeNotFound       Code = "NOT_FOUND"
	CodeAlreadyDeleted Code = "ALREADY_DELETED"
	CodeEmptyStack     Code = "NOTHING_TO_UNDO"
)

// Error is a recoverable command outcome. Commands never abort the process;
// the transport layer maps codes to user-facing statuses.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errInvalidClass(index int) *Error {
	return &Error{Code: CodeInvalidClass, Message: fmt.Sprintf("invalid class index: %d", index)}
}

func errInvalidPath(reason error) *Error {
	return &Error{Code: CodeInvalidPath, Message: reason.Error()}
}

func errNotFound(id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("image not found: %s", id)}
}

func errAlreadyDeleted(id string) *Error {
	return &Error{Code: CodeAlreadyDeleted, Message: fmt.Sprintf("image already marked for deletion: %s", id)}
}

func errEmptyStack() *Error {
	return &Error{Code: CodeEmptyStack, Message: "nothing to undo"}
}

// CodeOf extracts the classification code from an error, or "" when the
// error is not a command outcome.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
