package job

import (
	"bytes"
	"encoding/json"
)

// StatusKind is the lifecycle state of a job as reported by the service.
type StatusKind int

// Status kind constants.
const (
	// StatusUnknown is a payload the service should never send.
	StatusUnknown StatusKind = iota
	StatusPending
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// String returns the canonical token of the kind.
func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal determines if the kind ends the life of a job.
func (k StatusKind) Terminal() bool {
	return k == StatusCompleted || k == StatusFailed
}

// statusTokens is the closed vocabulary of status tokens. Matching is case sensitive.
var statusTokens = map[string]StatusKind{
	"pending":    StatusPending,
	"processing": StatusProcessing,
	"running":    StatusProcessing,
	"completed":  StatusCompleted,
	"done":       StatusCompleted,
	"failed":     StatusFailed,
	"error":      StatusFailed,
}

// Status is a single observation of a job.
//
// Only the fields belonging to Kind are set: Result for
// StatusCompleted, Error for StatusFailed and Raw for StatusUnknown.
type Status struct {
	Kind StatusKind

	// Result is the job result, if the service sent one.
	Result json.RawMessage

	// Error is the failure message sent by the service.
	Error string

	// Raw is the payload that could not be interpreted.
	Raw []byte
}

// String returns the status token.
func (s Status) String() string {
	return s.Kind.String()
}

type statusPayload struct {
	Status *string         `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Interpret maps a raw status payload to a Status.
//
// Interpret never fails: payloads that are not JSON objects, lack a string
// status, or carry a token outside the known vocabulary are StatusUnknown.
func Interpret(raw []byte) Status {
	var payload statusPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Status == nil {
		return unknownStatus(raw)
	}

	kind, ok := statusTokens[*payload.Status]
	if !ok {
		return unknownStatus(raw)
	}

	st := Status{Kind: kind}
	switch kind {
	case StatusCompleted:
		if !isNull(payload.Result) {
			st.Result = payload.Result
		}

	case StatusFailed:
		st.Error = errorMessage(payload.Error)
	}
	return st
}

func unknownStatus(raw []byte) Status {
	return Status{Kind: StatusUnknown, Raw: append([]byte(nil), raw...)}
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// errorMessage extracts the message from an error field, which the
// service sends as a string but may send as any JSON value.
func errorMessage(b json.RawMessage) string {
	if isNull(b) {
		return ""
	}

	var msg string
	if err := json.Unmarshal(b, &msg); err == nil {
		return msg
	}
	return string(bytes.TrimSpace(b))
}
