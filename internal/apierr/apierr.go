// Package apierr defines the typed error kinds the API surface maps to HTTP
// status codes, per the error handling design.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one class of API-visible error.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindUnauthenticated       Kind = "unauthenticated"
	KindForbidden             Kind = "forbidden"
	KindNotFound              Kind = "not_found"
	KindRateLimited           Kind = "rate_limited"
	KindConflict              Kind = "conflict"
	KindEmbedderUnavailable   Kind = "embedder_unavailable"
	KindChunkStoreUnavailable Kind = "chunk_store_unavailable"
	KindInternal              Kind = "internal"
)

// statusByKind is the fixed Kind→HTTP status mapping.
var statusByKind = map[Kind]int{
	KindInvalidInput:          http.StatusBadRequest,
	KindUnauthenticated:       http.StatusUnauthorized,
	KindForbidden:             http.StatusForbidden,
	KindNotFound:              http.StatusNotFound,
	KindRateLimited:           http.StatusTooManyRequests,
	KindConflict:              http.StatusConflict,
	KindEmbedderUnavailable:   http.StatusServiceUnavailable,
	KindChunkStoreUnavailable: http.StatusServiceUnavailable,
	KindInternal:              http.StatusInternalServerError,
}

// Error is an API-visible error: a classification plus a message safe to
// return to the caller (no file paths, no stack traces, no secrets).
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter int // seconds; only meaningful for KindRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code e maps to.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind with a caller-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind, attaching cause for logging while
// keeping message as the only thing shown to the caller.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "insufficient permission"
	}
	return New(KindForbidden, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

// RateLimited builds a rate-limit error carrying the Retry-After hint in
// seconds.
func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfterSeconds,
	}
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func EmbedderUnavailable(cause error) *Error {
	return Wrap(KindEmbedderUnavailable, "embedding provider unavailable", cause)
}

func ChunkStoreUnavailable(cause error) *Error {
	return Wrap(KindChunkStoreUnavailable, "chunk store unavailable", cause)
}

func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal server error", cause)
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusFor returns the HTTP status for err, defaulting to 500 for errors
// that are not an *Error.
func StatusFor(err error) int {
	if apiErr, ok := As(err); ok {
		return apiErr.Status()
	}
	return http.StatusInternalServerError
}
