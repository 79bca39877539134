package services

import (
	"errors"
	"fmt"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindInvalidData
	KindFailedAuthentication
	KindForbidden
	KindServerError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidData:
		return "invalid_data"
	case KindFailedAuthentication:
		return "failed_authentication"
	case KindForbidden:
		return "forbidden"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Error is a failure with a caller-facing message. Err keeps the cause for
// logging and is never shown to callers.
type Error struct {
	Kind    ErrorKind
	Message string

	// Conflict marks InvalidData caused by an already taken unique value.
	Conflict bool

	// Details is extra caller-facing context, such as which field failed validation.
	Details string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	msgInvalidData        = "Invalid data"
	msgUnauthorised       = "Unauthorised access"
	msgNotFound           = "Resource not found"
	msgServerError        = "Unexpected server error"
	msgAuthenticationFail = "Authentication failed"
)

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func InvalidData(message string) *Error {
	return &Error{Kind: KindInvalidData, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindInvalidData, Message: message, Conflict: true}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Unauthorised is the rejection for a failed access check.
func Unauthorised() *Error {
	return Forbidden(msgUnauthorised)
}

func FailedAuthentication() *Error {
	return &Error{Kind: KindFailedAuthentication, Message: msgAuthenticationFail}
}

func ServerError(err error) *Error {
	return &Error{Kind: KindServerError, Message: msgServerError, Err: err}
}

// AsError returns err as an *Error, treating anything unrecognised as a
// server error.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return ServerError(err)
}

// translate maps store and validation failures onto the caller taxonomy.
// notFound is the message used when the target record is missing.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case errors.Is(err, store.ErrConstraint):
		return &Error{Kind: KindInvalidData, Message: msgInvalidData, Err: err}
	case errors.Is(err, types.ErrInvalidValue):
		return &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: err.Error(), Err: err}
	default:
		return ServerError(err)
	}
}
