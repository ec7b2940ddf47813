package relay

import (
	"promptpilot/backend/internal/workflow"
)

// ErrorCode classifies relay failures for the caller and the ledger.
type ErrorCode string

const (
	CodeUnauthenticated         ErrorCode = "unauthenticated"
	CodeInvalidRequest          ErrorCode = "invalid_request"
	CodeTransportFailure        ErrorCode = "transport_failure"
	CodeUpstreamRejected        ErrorCode = "upstream_rejected"
	CodeInvalidUpstreamResponse ErrorCode = "invalid_upstream_response"
	CodeStorageFailure          ErrorCode = "storage_failure"
)

// Error is a relay failure carrying the HTTP status to surface and, when a
// run record was created, the request id for correlation.
type Error struct {
	Code       ErrorCode
	HTTPStatus int
	Message    string
	RequestID  string
	Details    []workflow.Violation
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code ErrorCode, status int, msg string, cause error) *Error {
	return &Error{Code: code, HTTPStatus: status, Message: msg, cause: cause}
}
