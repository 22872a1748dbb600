// Package services defines the stable, transport-agnostic capability
// contracts the core exposes to RPC, WebSocket, and other transports: one
// interface per domain plus a Noop default so a Services bundle compiles and
// runs before every concrete implementation is wired in.
package services

import "fmt"

// ErrorCode classifies a ServiceError for transports that need to map it to
// a protocol-level status without parsing the message text.
type ErrorCode string

const (
	CodeUnavailable ErrorCode = "UNAVAILABLE"
	CodeInvalid     ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound    ErrorCode = "NOT_FOUND"
)

// Error is returned by service methods. Most Noop implementations use
// NewError with CodeUnavailable; a concrete implementation may return a more
// specific code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a ServiceError with an explicit code.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Unavailable builds a ServiceError with CodeUnavailable, the code nearly
// every Noop implementation returns when a domain has no concrete backend.
func Unavailable(format string, args ...any) *Error {
	return NewError(CodeUnavailable, format, args...)
}
