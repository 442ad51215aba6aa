// Package apperror defines the error value that carries an HTTP status
// across the validation, service and router layers.
package apperror

import (
	"errors"
	"net/http"
	"strings"
)

// Kind names written to the "error" field of error bodies. Every error raised
// by validation or by the service is a KindAPI error whatever its status.
const (
	KindAPI             = "ApiError"
	KindNotFound        = "NotFound"
	KindForbidden       = "Forbidden"
	KindTooManyRequests = "TooManyRequests"
	KindInternal        = "InternalServerError"
)

// Messages shared between packages and tests.
const (
	MsgUserNotFound     = "User not found"
	MsgInvalidID        = "Invalid ID format"
	MsgInvalidBody      = "Request body must be a JSON object"
	MsgBodyTooLarge     = "Request body is too large"
	MsgInvalidGzip      = "Request body is not valid gzip"
	MsgRouteNotFound    = "The requested resource does not exist"
	MsgUnexpected       = "An unexpected error occurred"
	MsgForbidden        = "Access to this resource is forbidden"
	MsgTooManyRequests  = "Too many requests, please retry later"
	violationsSeparator = "; "
)

// Error is a client or server fault with the HTTP status it maps to.
// Values are never modified after construction.
type Error struct {
	Status  int
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// New builds a KindAPI error for status.
func New(status int, message string) *Error {
	return newKind(status, KindAPI, message)
}

func newKind(status int, kind string, message string) *Error {
	return &Error{
		Status:  status,
		Kind:    kind,
		Message: message,
	}
}

// BadRequest is a 400 caused by malformed caller input.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// Violations joins several validation messages into one 400.
func Violations(messages []string) *Error {
	return BadRequest(strings.Join(messages, violationsSeparator))
}

// NotFound is a 404 for a missing entity.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// RouteNotFound is the 404 for a path or method no handler serves.
func RouteNotFound() *Error {
	return newKind(http.StatusNotFound, KindNotFound, MsgRouteNotFound)
}

// Forbidden is a 403.
func Forbidden(message string) *Error {
	return newKind(http.StatusForbidden, KindForbidden, message)
}

// TooManyRequests is a 429.
func TooManyRequests(message string) *Error {
	return newKind(http.StatusTooManyRequests, KindTooManyRequests, message)
}

// Internal is the 500 that replaces any unexpected failure at the boundary.
func Internal() *Error {
	return newKind(http.StatusInternalServerError, KindInternal, MsgUnexpected)
}

// As reports whether err is, or wraps, an *Error.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}

	return nil, false
}
