// Package liberr defines the error kinds shared by the library services and
// their mapping onto HTTP responses.
//
// Services return errors built with the helpers below. Each wraps one of the
// Err* kinds, so callers match with errors.Is and handlers pick a status with
// Status. Store failures are wrapped by Store: the cause stays available for
// logging while Message reports only a generic text.
package liberr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds.
var (
	ErrInvalidID       = errors.New("invalid identifier")
	ErrMissingParam    = errors.New("missing parameter")
	ErrInvalidField    = errors.New("invalid field")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateBorrow = errors.New("duplicate borrow")
	ErrStore           = errors.New("store operation failed")
)

// Error is a kind plus the message shown to API clients.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Unwrap exposes the underlying cause (store errors, parse errors).
func (e *Error) Unwrap() error { return e.Cause }

// InvalidID reports a malformed identifier.
func InvalidID() error {
	return &Error{Kind: ErrInvalidID, Message: "Invalid ID format"}
}

// Missing reports a required parameter that was absent or blank.
func Missing(what string) error {
	return &Error{Kind: ErrMissingParam, Message: what + " is required"}
}

// Invalid reports a field with an unusable value.
func Invalid(msg string) error {
	return &Error{Kind: ErrInvalidField, Message: msg}
}

// NotFound reports that no record matched.
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// DuplicateBorrow reports that the user already holds the book.
func DuplicateBorrow() error {
	return &Error{Kind: ErrDuplicateBorrow, Message: "You have already borrowed this book!"}
}

// Store wraps an infrastructure failure.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrStore, Message: "Server error", Cause: fmt.Errorf("%s: %w", op, err)}
}

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrMissingParam),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrDuplicateBorrow):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrStore {
		return e.Message
	}
	return "Server error"
}
