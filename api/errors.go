package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// Service error codes.
const (
	CodeInviteCodeRequired  = "INVITE_CODE_REQUIRED"
	CodeInvalidInviteCode   = "INVALID_INVITE_CODE"
	CodeInviteCodeExhausted = "INVITE_CODE_EXHAUSTED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeRequestExpired      = "REQUEST_EXPIRED"
	CodeInvalidTimestamp    = "INVALID_TIMESTAMP"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("api: malformed response")

// ErrInvalidRequest is returned when a request cannot be built,
// such as when its data cannot be encoded. Retrying will not help.
var ErrInvalidRequest = errors.New("api: invalid request")

// snippetLen is the maximum length of a body kept in a StatusError.
const snippetLen = 200

// TransportError is a failure to get any response from the service.
type TransportError struct {
	Err error
}

// Error returns the error message.
func (e *TransportError) Error() string {
	return fmt.Sprintf("api: transport error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a response with a non-success HTTP status.
type StatusError struct {
	Code int
	Body string

	// Service is the decoded error body, if the body was a service error.
	Service *ServiceError
}

// Error returns the error message.
func (e *StatusError) Error() string {
	if e.Service != nil {
		return fmt.Sprintf("api: status %d: %s", e.Code, e.Service.Error())
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Body)
}

// Unwrap returns the service error, if any.
func (e *StatusError) Unwrap() error {
	if e.Service == nil {
		return nil
	}
	return e.Service
}

// ServiceError is an error reported by the service.
type ServiceError struct {
	Code       string `json:"error"`
	Message    string `json:"message,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Error returns the error message.
func (e *ServiceError) Error() string {
	switch {
	case e.Code == CodeRateLimitExceeded && e.RetryAfter > 0:
		return fmt.Sprintf("%s (retry after %ds)", e.Code, e.RetryAfter)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Details != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Details)
	}
	return e.Code
}

func snippet(b []byte) string {
	if len(b) > snippetLen {
		b = b[:snippetLen]
	}
	return string(b)
}
