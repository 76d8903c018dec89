package job

import (
	"fmt"

	"github.com/pkg/errors"
)

// SubmitErrorKind classifies a submission failure.
type SubmitErrorKind int

// Submit error kinds.
const (
	// SubmitNetwork is a connection, DNS or timeout failure.
	SubmitNetwork SubmitErrorKind = iota
	// SubmitBadStatus is a non-success HTTP status.
	SubmitBadStatus
	// SubmitMalformed is a response body without a usable job id.
	SubmitMalformed
	// SubmitRejected is a service error inside a successful response.
	SubmitRejected
	// SubmitInvalid is a request that cannot be sent, such as one
	// whose data cannot be encoded.
	SubmitInvalid
)

// Sentinel errors matching a SubmitError of the same kind with errors.Is.
var (
	ErrSubmitNetwork   = errors.New("job: submit network error")
	ErrSubmitBadStatus = errors.New("job: submit bad status")
	ErrSubmitMalformed = errors.New("job: submit malformed response")
	ErrSubmitRejected  = errors.New("job: submit rejected")
	ErrSubmitInvalid   = errors.New("job: submit invalid request")
)

// SubmitError is returned when a job could not be submitted.
type SubmitError struct {
	Kind SubmitErrorKind

	// Code is the HTTP status code, for SubmitBadStatus.
	Code int

	// Body is a snippet of the response body, for SubmitBadStatus.
	Body string

	// Reason is the service error code, for SubmitRejected and, when
	// the service sent one, SubmitBadStatus.
	Reason string

	Err error
}

// Error returns the error message.
func (e *SubmitError) Error() string {
	switch e.Kind {
	case SubmitBadStatus:
		return fmt.Sprintf("job: submit failed with status %d: %s", e.Code, e.Body)
	case SubmitMalformed:
		return fmt.Sprintf("job: submit returned a malformed response: %v", e.Err)
	case SubmitRejected:
		return fmt.Sprintf("job: submit rejected by service: %s", e.Reason)
	case SubmitInvalid:
		return fmt.Sprintf("job: submit request is invalid: %v", e.Err)
	default:
		return fmt.Sprintf("job: submit network error: %v", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind.
func (e *SubmitError) Is(target error) bool {
	switch e.Kind {
	case SubmitNetwork:
		return target == ErrSubmitNetwork
	case SubmitBadStatus:
		return target == ErrSubmitBadStatus
	case SubmitMalformed:
		return target == ErrSubmitMalformed
	case SubmitRejected:
		return target == ErrSubmitRejected
	case SubmitInvalid:
		return target == ErrSubmitInvalid
	}
	return false
}

// PollErrorKind classifies the terminal outcome of an unsuccessful poll session.
type PollErrorKind int

// Poll error kinds.
const (
	// PollFailed means the service reported the job as failed.
	PollFailed PollErrorKind = iota
	// PollExhausted means the attempt budget ran out; the job outcome is unknown.
	PollExhausted
	// PollCancelled means the caller stopped polling.
	PollCancelled
)

// Sentinel errors matching a PollError of the same kind with errors.Is.
var (
	ErrJobFailed = errors.New("job: failed")
	ErrExhausted = errors.New("job: attempts exhausted")
	ErrCancelled = errors.New("job: polling cancelled")
)

// PollError is returned when a poll session does not end in completion.
type PollError struct {
	Kind     PollErrorKind
	Handle   Handle
	Attempts int

	// Message is the service failure message, for PollFailed.
	Message string

	// Err is the cancellation cause, for PollCancelled.
	Err error
}

// Error returns the error message.
func (e *PollError) Error() string {
	switch e.Kind {
	case PollFailed:
		return fmt.Sprintf("job: %s failed: %s", e.Handle, e.Message)
	case PollExhausted:
		return fmt.Sprintf("job: gave up on %s after %d attempts", e.Handle, e.Attempts)
	default:
		return fmt.Sprintf("job: polling %s cancelled after %d attempts: %v", e.Handle, e.Attempts, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *PollError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind.
func (e *PollError) Is(target error) bool {
	switch e.Kind {
	case PollFailed:
		return target == ErrJobFailed
	case PollExhausted:
		return target == ErrExhausted
	case PollCancelled:
		return target == ErrCancelled
	}
	return false
}

// StateOf returns the terminal session state described by an error
// returned from polling. A nil error is StateCompleted.
func StateOf(err error) State {
	var perr *PollError
	switch {
	case err == nil:
		return StateCompleted
	case !errors.As(err, &perr):
		return StateFailed
	case perr.Kind == PollExhausted:
		return StateExhausted
	case perr.Kind == PollCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
