package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/jobwatch/api"
	"github.com/nrwiersma/jobwatch/pkg/clock"
	"github.com/pkg/errors"
)

// unknownJobError is the failure message used when the service
// reports a failed job without saying why.
const unknownJobError = "Unknown error"

// payloadLogLen is the maximum number of payload bytes logged.
const payloadLogLen = 200

// Result is the outcome of a completed job.
type Result struct {
	Handle   Handle
	Attempts int

	// Data is the result sent by the service, if any.
	Data json.RawMessage
}

// Poller polls job status until the job reaches a terminal state.
//
// A Poller holds no per-job state and may poll many sessions
// concurrently; each session is polled strictly sequentially.
type Poller struct {
	caller Caller

	clock    clock.Clock
	progress ProgressFunc
	verbose  bool

	log   log.Logger
	stats stats.Statter
}

// NewPoller returns a job poller.
func NewPoller(caller Caller, opts ...Option) *Poller {
	o := newOptions(opts)

	return &Poller{
		caller:   caller,
		clock:    o.clock,
		progress: o.progress,
		verbose:  o.verbose,
		log:      o.log,
		stats:    o.stats,
	}
}

// PollUntilTerminal polls the job in a new session with the given limits.
func (p *Poller) PollUntilTerminal(ctx context.Context, h Handle, interval time.Duration, maxAttempts int, callTimeout time.Duration) (Result, error) {
	g := Guard{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		CallTimeout: callTimeout,
	}
	if err := g.Validate(); err != nil {
		return Result{}, err
	}

	return p.Poll(ctx, NewSession(h, g))
}

// Poll polls the session's job until it completes, fails, the attempt
// budget is spent or ctx is cancelled.
//
// Failed status queries are retried within the budget, except for a query
// that cannot be built which fails the session and returns the error. A job the service
// reports as failed returns a PollError of kind PollFailed; an exhausted
// budget or cancellation return kinds PollExhausted and PollCancelled.
func (p *Poller) Poll(ctx context.Context, sess *Session) (Result, error) {
	if st := sess.State(); st != StateCreated {
		return Result{}, errors.Wrapf(ErrSessionClosed, "cannot poll session in state %s", st)
	}

	g := sess.Guard()
	if err := g.Validate(); err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, p.cancel(sess, err)
	}
	if err := sess.start(p.clock.Now()); err != nil {
		return Result{}, err
	}

	h := sess.Handle()
	p.log.Debug("job: polling", "job", h, "max-attempts", g.MaxAttempts, "budget", g.TotalBudget())

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, p.cancel(sess, err)
		}

		attempt, err := sess.attempt()
		if err != nil {
			return Result{}, err
		}

		raw, err := p.query(ctx, h, g.CallTimeout)
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The in flight result, if any, is discarded.
			return Result{}, p.cancel(sess, ctxErr)
		}

		obs := Observation{
			Handle:    h,
			Attempt:   attempt,
			Remaining: g.AttemptsRemaining(sess),
		}

		if err != nil && errors.Is(err, api.ErrInvalidRequest) {
			// The request can never succeed, so the budget is not spent on it.
			p.stats.Inc("job.poll.attempt", 1, 1.0, "status", "invalid")
			p.log.Error("job: status query cannot be sent", "job", h, "attempt", attempt, "error", err)
			p.finish(sess, StateFailed)
			return Result{Handle: h, Attempts: attempt}, err
		}

		if err != nil {
			obs.Transient = true
			if p.verbose {
				obs.Err = err
			}
			p.stats.Inc("job.poll.attempt", 1, 1.0, "status", "error")
			p.log.Debug("job: status query failed", "job", h, "attempt", attempt, "error", err)
			p.report(obs)
		} else {
			st := Interpret(raw)
			sess.observe(st)
			obs.Status = st

			p.stats.Inc("job.poll.attempt", 1, 1.0, "status", st.Kind.String())
			if st.Kind == StatusUnknown {
				p.log.Info("job: unexpected status payload", "job", h, "attempt", attempt, "payload", truncate(st.Raw))
			}
			p.report(obs)

			switch st.Kind {
			case StatusCompleted:
				p.finish(sess, StateCompleted)
				return Result{Handle: h, Attempts: attempt, Data: st.Result}, nil

			case StatusFailed:
				msg := st.Error
				if msg == "" {
					msg = unknownJobError
				}
				p.finish(sess, StateFailed)
				return Result{Handle: h, Attempts: attempt}, &PollError{Kind: PollFailed, Handle: h, Attempts: attempt, Message: msg}
			}
		}

		if g.Exhausted(sess) {
			p.finish(sess, StateExhausted)
			return Result{Handle: h, Attempts: attempt}, &PollError{Kind: PollExhausted, Handle: h, Attempts: attempt}
		}

		if err = p.wait(ctx, g.Interval); err != nil {
			return Result{}, p.cancel(sess, err)
		}
	}
}

func (p *Poller) query(ctx context.Context, h Handle, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.clock.Now()
	raw, err := p.caller.Call(ctx, api.ActionGetJobStatus, api.JobStatusData{JobID: string(h)})
	p.stats.Timing("job.poll.latency", p.clock.Now().Sub(start), 1.0)

	return raw, err
}

func (p *Poller) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	t := p.clock.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Poller) report(obs Observation) {
	if p.progress == nil {
		return
	}
	p.progress(obs)
}

func (p *Poller) finish(sess *Session, to State) {
	// Only a terminal session can fail to finish, and a
	// terminal session never reaches the poll loop.
	_ = sess.finish(to)

	p.stats.Inc("job.poll.outcome", 1, 1.0, "state", to.String())
	p.log.Info("job: polling finished", "job", sess.Handle(), "state", to, "attempts", sess.Attempts())
}

func (p *Poller) cancel(sess *Session, cause error) error {
	p.finish(sess, StateCancelled)

	return &PollError{Kind: PollCancelled, Handle: sess.Handle(), Attempts: sess.Attempts(), Err: cause}
}

func truncate(b []byte) string {
	if len(b) > payloadLogLen {
		return string(b[:payloadLogLen]) + "..."
	}
	return string(b)
}
