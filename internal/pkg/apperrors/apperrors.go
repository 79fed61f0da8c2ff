package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidOperation
	KindSignature
	KindStorage
	KindGateway
)

// Error carries a kind alongside a message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates a classified error wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the response status used by the API surface.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidOperation, KindSignature:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller (or a webhook redelivery) may retry.
// Validation and state-precondition failures are terminal; only
// infrastructure failures are worth re-invoking.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindGateway:
		return true
	default:
		return false
	}
}
