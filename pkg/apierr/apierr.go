package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the wire-visible error taxonomy. Name and the HTTP status are
// part of the API contract; Message is shown to callers only when Exposable
// is true, otherwise a generic message is substituted at render time.
type Error struct {
	Status    int
	Name      string
	Message   string
	Exposable bool
	// TxHash rides along on post-broadcast failures so callers never lose
	// track of a transaction that is already on the wire.
	TxHash string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying cause and returns the error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// PublicMessage is the message safe to place in a response body.
func (e *Error) PublicMessage() string {
	if e.Exposable {
		return e.Message
	}
	return "An unexpected error occurred"
}

// BadRequest reports that validation failed at the ingress boundary.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Name: "BadRequest", Message: fmt.Sprintf(format, args...), Exposable: true}
}

// Unauthorized reports a missing or unknown API key.
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Name: "Unauthorized", Message: msg, Exposable: true}
}

// NotFound reports an unknown route, token id, or operation.
func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Name: "NotFound", Message: fmt.Sprintf(format, args...), Exposable: true}
}

// Conflict reports a duplicate or incompatible operation, e.g. pausing a
// non-pausable token.
func Conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Name: "Conflict", Message: fmt.Sprintf(format, args...), Exposable: true}
}

// RateLimited reports an exhausted rate-limit budget.
func RateLimited() *Error {
	return &Error{Status: http.StatusTooManyRequests, Name: "RateLimitExceeded", Message: "Rate limit exceeded", Exposable: true}
}

// Internal reports an unexpected failure. The message is never exposed.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Name: "InternalError", Message: "internal error", Exposable: false, cause: err}
}

// UpstreamUnavailable reports that the RPC endpoint is unreachable.
func UpstreamUnavailable(err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Name: "UpstreamUnavailable", Message: "Blockchain RPC unavailable", Exposable: true, cause: err}
}

// UpstreamTimeout reports that the RPC is reachable but a receipt was not
// observed within the deadline.
func UpstreamTimeout(txHash string) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Name: "UpstreamTimeout", Message: "Timed out waiting for transaction confirmation", Exposable: true, TxHash: txHash, cause: fmt.Errorf("receipt wait deadline exceeded for %s", txHash)}
}

// From maps an arbitrary error to the taxonomy. *Error values pass through
// unchanged; anything else becomes InternalError.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
