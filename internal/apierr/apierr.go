// Package apierr provides a typed error taxonomy shared across every
// handler, so a service-layer error carries enough information to pick
// the right HTTP status without the handler re-deriving it.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Kind classifies an API error into one of a fixed set of outcomes.
type Kind string

const (
	KindBadRequest         Kind = "bad_request"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindTooManyRequests    Kind = "too_many_requests"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInternal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindBadRequest:         http.StatusBadRequest,
	KindUnauthorized:       http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindNotFound:           http.StatusNotFound,
	KindTooManyRequests:    http.StatusTooManyRequests,
	KindServiceUnavailable: http.StatusServiceUnavailable,
	KindInternal:           http.StatusInternalServerError,
}

// Error is the error type every handler and service function should
// return for a condition the client needs to see. It wraps an optional
// underlying error for logging without leaking it to the response body.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Status: statusByKind[kind], Message: message, Err: err}
}

func BadRequest(message string, err error) *Error        { return newError(KindBadRequest, message, err) }
func Unauthorized(message string, err error) *Error      { return newError(KindUnauthorized, message, err) }
func Forbidden(message string, err error) *Error         { return newError(KindForbidden, message, err) }
func NotFound(message string, err error) *Error          { return newError(KindNotFound, message, err) }
func TooManyRequests(message string, err error) *Error    { return newError(KindTooManyRequests, message, err) }
func ServiceUnavailable(message string, err error) *Error { return newError(KindServiceUnavailable, message, err) }
func Internal(message string, err error) *Error           { return newError(KindInternal, message, err) }

// envelope is the JSON shape written to the response body. Error carries
// the human-readable message; Kind is not serialized and is used only
// inside this package to pick the status and the internal-error handling.
type envelope struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// WriteError writes err as a {status, error} JSON envelope.
// Non-*Error values are treated as internal errors and their underlying
// detail is never exposed to the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal("internal error", err)
	}

	if apiErr.Kind == KindInternal && logger != nil {
		logger.Error("internal error", "error", apiErr.Unwrap(), "message", apiErr.Message)
	}

	message := apiErr.Message
	if apiErr.Kind == KindInternal {
		message = "an internal error occurred"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(envelope{
		Status: apiErr.Status,
		Error:  message,
	})
}
