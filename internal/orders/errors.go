package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock is returned by stores when a decrement would drive stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
)

// Error is a rejected operation. Details carries structured data for the caller
// (invalid ids, shortfalls) and is serialized as-is.
type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validation(msg string, details any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// notFoundOr maps a store ErrNotFound to a domain not-found error with msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(msg)
	}
	return err
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
