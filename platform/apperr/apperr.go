// Package apperr defines the typed errors services return. The HTTP layer maps
// an error's Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the category of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	KindInternal
	// KindGone is a resource that existed but can no longer be used.
	KindGone
	// KindUnavailable is a transient condition; the caller may retry.
	KindUnavailable
)

var kindInfo = map[Kind]struct {
	name   string
	status int
}{
	KindUnknown:      {"unknown", http.StatusInternalServerError},
	KindNotFound:     {"not_found", http.StatusNotFound},
	KindValidation:   {"validation", http.StatusBadRequest},
	KindConflict:     {"conflict", http.StatusConflict},
	KindForbidden:    {"forbidden", http.StatusForbidden},
	KindUnauthorized: {"unauthorized", http.StatusUnauthorized},
	KindBadRequest:   {"bad_request", http.StatusBadRequest},
	KindInternal:     {"internal", http.StatusInternalServerError},
	KindGone:         {"gone", http.StatusGone},
	KindUnavailable:  {"unavailable", http.StatusServiceUnavailable},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain error. Message and Details are safe to show to callers;
// Err is not.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any

	// RetryAfter surfaces as a Retry-After header on retryable errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status code for the error's kind.
func (e *Error) HTTPStatus() int {
	if info, ok := kindInfo[e.Kind]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the failing operation and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response details and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithRetryAfter sets the suggested wait and returns e.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// Retryable reports whether the caller may repeat the operation unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

func NotFound(message string) *Error    { return New(KindNotFound, message) }
func Validation(message string) *Error  { return New(KindValidation, message) }
func Internal(message string) *Error    { return New(KindInternal, message) }
func Gone(message string) *Error        { return New(KindGone, message) }
func Unavailable(message string) *Error { return New(KindUnavailable, message) }

// GetKind returns the kind of the first *Error in err's chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
