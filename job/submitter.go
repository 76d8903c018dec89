package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/jobwatch/api"
	"github.com/pkg/errors"
)

// Caller performs a single call against the job service and
// returns the raw result payload.
type Caller interface {
	Call(ctx context.Context, action string, data interface{}) ([]byte, error)
}

// Request is a unit of work to submit.
type Request struct {
	// Action is the service action that processes the job.
	Action string

	// Data is the action input. It must encode to JSON.
	Data interface{}
}

// Submitter submits jobs to the service.
//
// Submissions are never retried: the service does not
// deduplicate, so a retry may create a second job.
type Submitter struct {
	caller Caller

	log   log.Logger
	stats stats.Statter
}

// NewSubmitter returns a job submitter.
func NewSubmitter(caller Caller, opts ...Option) *Submitter {
	o := newOptions(opts)

	return &Submitter{
		caller: caller,
		log:    o.log,
		stats:  o.stats,
	}
}

// Submit submits the request and returns the handle of the created job.
// A zero callTimeout leaves the call bounded only by ctx.
func (s *Submitter) Submit(ctx context.Context, req Request, callTimeout time.Duration) (Handle, error) {
	if req.Action == "" {
		return "", &SubmitError{Kind: SubmitInvalid, Err: errors.New("request action cannot be empty")}
	}

	if callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}

	raw, err := s.caller.Call(ctx, api.ActionSubmitJob, api.SubmitJobData{Action: req.Action, Data: req.Data})
	if err != nil {
		serr := classifySubmitError(err)
		s.stats.Inc("job.submit", 1, 1.0, "result", submitResult(serr.Kind))
		s.log.Error("job: submit failed", "action", req.Action, "error", serr)
		return "", serr
	}

	var res api.SubmitJobResult
	if err = json.Unmarshal(raw, &res); err != nil {
		s.stats.Inc("job.submit", 1, 1.0, "result", submitResult(SubmitMalformed))
		return "", &SubmitError{Kind: SubmitMalformed, Err: err}
	}
	if res.JobID == "" {
		s.stats.Inc("job.submit", 1, 1.0, "result", submitResult(SubmitMalformed))
		return "", &SubmitError{Kind: SubmitMalformed, Err: errors.New("response has no job id")}
	}

	h := Handle(res.JobID)
	s.stats.Inc("job.submit", 1, 1.0, "result", "ok")
	s.log.Info("job: submitted", "action", req.Action, "job", h)

	return h, nil
}

func classifySubmitError(err error) *SubmitError {
	var (
		statusErr *api.StatusError
		svcErr    *api.ServiceError
	)

	switch {
	case errors.As(err, &statusErr):
		serr := &SubmitError{Kind: SubmitBadStatus, Code: statusErr.Code, Body: statusErr.Body, Err: err}
		if statusErr.Service != nil {
			serr.Reason = statusErr.Service.Code
		}
		return serr

	case errors.As(err, &svcErr):
		return &SubmitError{Kind: SubmitRejected, Reason: svcErr.Code, Err: err}

	case errors.Is(err, api.ErrMalformedResponse):
		return &SubmitError{Kind: SubmitMalformed, Err: err}

	case errors.Is(err, api.ErrInvalidRequest):
		return &SubmitError{Kind: SubmitInvalid, Err: err}

	default:
		// Transport failures, including call timeouts.
		return &SubmitError{Kind: SubmitNetwork, Err: err}
	}
}

func submitResult(k SubmitErrorKind) string {
	switch k {
	case SubmitBadStatus:
		return "bad-status"
	case SubmitMalformed:
		return "malformed"
	case SubmitRejected:
		return "rejected"
	case SubmitInvalid:
		return "invalid"
	default:
		return "network"
	}
}
