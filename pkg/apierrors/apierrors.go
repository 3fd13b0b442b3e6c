// Package apierrors defines the error taxonomy shared by the catalog, file and
// recommendation packages, and how each kind maps onto an HTTP status.
package apierrors

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	// KindInternal is any unexpected failure (I/O, archive construction).
	KindInternal Kind = iota
	// KindValidation is bad caller input, such as an empty prompt.
	KindValidation
	// KindNotFound is an unknown skill id or a missing skill directory.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries a client-facing message alongside an optional cause that is
// only ever logged.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a KindValidation error with the given message.
func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound returns a KindNotFound error with the given message.
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NotFoundf wraps cause as a KindNotFound error.
func NotFoundf(cause error, message string) error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

// Internal wraps cause as a KindInternal error.
func Internal(cause error, message string) error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a KindValidation error.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the client-facing message of the first *Error in err's
// chain, or fallback when there is none.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
