package api

import "encoding/json"

// Service actions used by the job client.
const (
	ActionSubmitJob    = "submitJob"
	ActionGetJobStatus = "getJobStatus"
)

// Request is the body sent for every service call.
type Request struct {
	Code   string      `json:"code"`
	Action string      `json:"action"`
	Data   interface{} `json:"data,omitempty"`

	// Timestamp repeats the timestamp header in signed requests.
	Timestamp string `json:"_t,omitempty"`
}

// Envelope is the body returned by every service call.
type Envelope struct {
	Result   json.RawMessage `json:"result"`
	Action   string          `json:"action,omitempty"`
	CodeType string          `json:"codeType,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SubmitJobData is the data of a job submission.
type SubmitJobData struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data,omitempty"`
}

// SubmitJobResult is the result of a job submission.
type SubmitJobResult struct {
	JobID  string `json:"jobId"`
	Status string `json:"status,omitempty"`
}

// JobStatusData is the data of a job status query.
type JobStatusData struct {
	JobID string `json:"jobId"`
}

// JobStatusResult is the result of a job status query.
type JobStatusResult struct {
	JobID     string          `json:"jobId"`
	Status    string          `json:"status"`
	Action    string          `json:"action,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt int64           `json:"createdAt,omitempty"`
	UpdatedAt int64           `json:"updatedAt,omitempty"`
}
