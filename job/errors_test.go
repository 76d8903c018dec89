package job_test

import (
	"testing"

	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSubmitError_Error(t *testing.T) {
	err := &job.SubmitError{Kind: job.SubmitBadStatus, Code: 502, Body: "bad gateway"}

	assert.Equal(t, "job: submit failed with status 502: bad gateway", err.Error())
}

func TestSubmitError_ErrorInvalid(t *testing.T) {
	err := &job.SubmitError{Kind: job.SubmitInvalid, Err: errors.New("bad data")}

	assert.Equal(t, "job: submit request is invalid: bad data", err.Error())
	assert.True(t, errors.Is(err, job.ErrSubmitInvalid))
	assert.False(t, errors.Is(err, job.ErrSubmitNetwork))
}

func TestSubmitError_IsOnlyMatchesOwnKind(t *testing.T) {
	err := errors.Wrap(&job.SubmitError{Kind: job.SubmitMalformed}, "submit")

	assert.True(t, errors.Is(err, job.ErrSubmitMalformed))
	assert.False(t, errors.Is(err, job.ErrSubmitNetwork))
	assert.False(t, errors.Is(err, job.ErrJobFailed))
}

func TestPollError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *job.PollError
		want string
	}{
		{
			name: "Failed",
			err:  &job.PollError{Kind: job.PollFailed, Handle: "job-1", Attempts: 2, Message: "quota"},
			want: "job: job-1 failed: quota",
		},
		{
			name: "Exhausted",
			err:  &job.PollError{Kind: job.PollExhausted, Handle: "job-1", Attempts: 5},
			want: "job: gave up on job-1 after 5 attempts",
		},
		{
			name: "Cancelled",
			err:  &job.PollError{Kind: job.PollCancelled, Handle: "job-1", Attempts: 2, Err: errors.New("stop")},
			want: "job: polling job-1 cancelled after 2 attempts: stop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want job.State
	}{
		{name: "Nil", err: nil, want: job.StateCompleted},
		{name: "Failed", err: &job.PollError{Kind: job.PollFailed}, want: job.StateFailed},
		{name: "Exhausted", err: &job.PollError{Kind: job.PollExhausted}, want: job.StateExhausted},
		{name: "Cancelled", err: errors.Wrap(&job.PollError{Kind: job.PollCancelled}, "wrapped"), want: job.StateCancelled},
		{name: "Other", err: errors.New("test"), want: job.StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, job.StateOf(tt.err))
		})
	}
}
