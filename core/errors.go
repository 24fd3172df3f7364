package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the service.
type Kind int

const (
	KindStoreFailure Kind = iota
	KindInvalidArgument
	KindNotFound
	KindFailedPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindFailedPrecondition:
		return "FailedPrecondition"
	default:
		return "StoreFailure"
	}
}

// ErrRecordNotFound is returned (optionally wrapped) by stores for missing ids.
var ErrRecordNotFound = errors.New("record not found")

// Error carries a Kind and a message meant for the caller, verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error without a cause.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error that keeps err as its cause.
func WrapError(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err. Errors not produced by this package are store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

func IsInvalidArgument(err error) bool {
	return err != nil && KindOf(err) == KindInvalidArgument
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func IsFailedPrecondition(err error) bool {
	return err != nil && KindOf(err) == KindFailedPrecondition
}

func IsStoreFailure(err error) bool {
	return err != nil && KindOf(err) == KindStoreFailure
}
