// Package toolerr classifies tool call failures.
//
// Every failure surfaced to a caller carries one Kind. Errors produced by
// the API client and the config layer implement Kinded directly; anything
// else is classified by KindOf.
package toolerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure category of a tool call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindNetwork    Kind = "network"
	KindCancelled  Kind = "cancelled"
	KindConfig     Kind = "config"
	KindInternal   Kind = "internal"
)

// Kinded is implemented by errors that know their own category.
type Kinded interface {
	error
	Kind() Kind
}

// Error is a categorised error with a caller-facing message.
type Error struct {
	kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{kind: kind, Message: message, Err: err}
}

// Validationf formats a validation failure.
func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// Internalf formats an internal failure.
func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the error category.
func (e *Error) Kind() Kind { return e.kind }

// KindOf reports the category of err. Untyped errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var kinded Kinded
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}

	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
