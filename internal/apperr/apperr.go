// Package apperr defines the typed, recoverable failures surfaced by the
// service layer. Every error carries a Kind that callers match with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindDuplicate    Kind = "duplicate"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrDuplicate    = &Error{Kind: KindDuplicate, Message: "duplicate"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...any) *Error { return New(KindNotFound, format, args...) }

func InvalidState(format string, args ...any) *Error { return New(KindInvalidState, format, args...) }

func Conflict(format string, args ...any) *Error { return New(KindConflict, format, args...) }

func Duplicate(format string, args ...any) *Error { return New(KindDuplicate, format, args...) }

func Unauthorized(format string, args ...any) *Error { return New(KindUnauthorized, format, args...) }

func Validation(format string, args ...any) *Error { return New(KindValidation, format, args...) }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
