package jobwatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/nrwiersma/jobwatch/manifest"
	"github.com/nrwiersma/jobwatch/pkg/clock"
	"github.com/nrwiersma/jobwatch/tracker"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of jobs run at once.
const DefaultConcurrency = 4

// Config configures an application.
type Config struct {
	// Caller performs the service calls.
	Caller job.Caller

	// Store records the sessions. A new store is created if nil.
	Store *tracker.Store

	// Guard is the polling budget of every job.
	Guard job.Guard

	// SubmitTimeout bounds a single submission. Zero leaves
	// submissions bounded only by the run context.
	SubmitTimeout time.Duration

	// Concurrency is the maximum number of jobs in flight.
	Concurrency int

	// ReportInterval is the minimum time between progress
	// summaries. Zero disables progress summaries.
	ReportInterval time.Duration

	// Verbose logs the cause of transient poll failures.
	Verbose bool

	Clock   clock.Clock
	Logger  log.Logger
	Statter stats.Statter
}

// Outcome is the result of running a single job.
//
// A job whose submission failed has no Handle and a Failed state, or
// Cancelled when the run was stopped. Use Submitted to tell it apart
// from a job the service reported as failed.
type Outcome struct {
	Name     string
	Handle   job.Handle
	State    job.State
	Attempts int
	Result   json.RawMessage
	Err      error
}

// Submitted determines if the service accepted the job.
func (o Outcome) Submitted() bool {
	return o.Handle != ""
}

// Outcomes is the result of a run.
type Outcomes []Outcome

// Completed determines if every job completed.
func (o Outcomes) Completed() bool {
	for _, out := range o {
		if out.State != job.StateCompleted {
			return false
		}
	}
	return true
}

// Application runs batches of jobs.
type Application struct {
	caller        job.Caller
	store         *tracker.Store
	guard         job.Guard
	submitTimeout time.Duration
	concurrency   int
	reportEvery   time.Duration
	verbose       bool

	clock   clock.Clock
	logger  log.Logger
	statter stats.Statter
}

// NewApplication creates an instance of Application.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Caller == nil {
		return nil, errors.New("jobwatch: caller cannot be nil")
	}
	if err := cfg.Guard.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		caller:        cfg.Caller,
		store:         cfg.Store,
		guard:         cfg.Guard,
		submitTimeout: cfg.SubmitTimeout,
		concurrency:   cfg.Concurrency,
		reportEvery:   cfg.ReportInterval,
		verbose:       cfg.Verbose,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		statter:       cfg.Statter,
	}

	if app.store == nil {
		store, err := tracker.New()
		if err != nil {
			return nil, err
		}
		app.store = store
	}
	if app.concurrency <= 0 {
		app.concurrency = DefaultConcurrency
	}
	if app.clock == nil {
		app.clock = clock.Real
	}
	if app.logger == nil {
		app.logger = log.Null
	}
	if app.statter == nil {
		app.statter = stats.Null
	}

	return app, nil
}

// Store returns the session store.
func (a *Application) Store() *tracker.Store {
	return a.store
}

// Run submits and polls every job, returning one outcome per job in input order.
//
// A failing job does not affect the others. Cancelling ctx cancels
// every job still running.
func (a *Application) Run(ctx context.Context, jobs []manifest.Job) (Outcomes, error) {
	out := make(Outcomes, len(jobs))

	reportCtx, stopReport := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if a.reportEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.report(reportCtx)
		}()
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			o, err := a.runJob(ctx, j)
			out[i] = o
			return err
		})
	}
	err := g.Wait()

	stopReport()
	wg.Wait()

	if err != nil {
		return out, err
	}

	a.logSummary()
	return out, nil
}

func (a *Application) runJob(ctx context.Context, j manifest.Job) (Outcome, error) {
	out := Outcome{Name: j.Name, State: job.StateCreated}

	now := a.clock.Now()
	rec := &tracker.Record{
		Name:      j.Name,
		Action:    j.Action,
		State:     job.StateCreated,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.Upsert(rec); err != nil {
		return out, err
	}

	submitter := job.NewSubmitter(a.caller, job.WithLogger(a.logger), job.WithStatter(a.statter))
	h, err := submitter.Submit(ctx, j.Request(), a.submitTimeout)
	if err != nil {
		out.State = job.StateFailed
		if ctx.Err() != nil {
			out.State = job.StateCancelled
		}
		out.Err = err

		rec.State = out.State
		rec.LastStatus = tracker.StatusSubmitFailed
		rec.Error = err.Error()
		return out, a.finish(rec)
	}
	out.Handle = h

	rec.Handle = h
	rec.State = job.StatePolling
	rec.UpdatedAt = a.clock.Now()
	if err = a.store.Upsert(rec); err != nil {
		return out, err
	}

	var storeErr error
	progress := func(obs job.Observation) {
		rec.Attempts = obs.Attempt
		rec.UpdatedAt = a.clock.Now()
		if obs.Transient {
			if obs.Err != nil {
				a.logger.Info("jobwatch: status query failed", "name", j.Name, "job", h, "attempt", obs.Attempt, "error", obs.Err)
			}
		} else {
			rec.LastStatus = obs.Status.String()
		}
		if err := a.store.Upsert(rec); err != nil && storeErr == nil {
			storeErr = err
		}
	}

	poller := job.NewPoller(a.caller,
		job.WithClock(a.clock),
		job.WithLogger(a.logger),
		job.WithStatter(a.statter),
		job.WithVerbose(a.verbose),
		job.WithProgress(progress),
	)
	sess := job.NewSession(h, a.guard)
	res, err := poller.Poll(ctx, sess)

	out.State = sess.State()
	out.Attempts = sess.Attempts()
	out.Result = res.Data
	out.Err = err

	rec.State = out.State
	rec.Attempts = out.Attempts
	rec.Result = res.Data
	if err != nil {
		rec.Error = errorMessage(err)
	}
	if storeErr != nil {
		return out, storeErr
	}
	return out, a.finish(rec)
}

func (a *Application) finish(rec *tracker.Record) error {
	rec.UpdatedAt = a.clock.Now()

	a.statter.Inc("jobwatch.job", 1, 1.0, "state", rec.State.String())
	a.logger.Info("jobwatch: job finished", "name", rec.Name, "job", rec.Handle, "state", rec.State, "attempts", rec.Attempts)

	return a.store.Upsert(rec)
}

// report logs a state summary whenever the sessions changed,
// at most once per report interval.
func (a *Application) report(ctx context.Context) {
	stop := make(chan time.Time)
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	var last uint64
	for {
		ws := memdb.NewWatchSet()
		idx, _, err := a.store.Records(ws)
		if err != nil {
			a.logger.Error("jobwatch: could not read sessions", "error", err)
			return
		}
		if idx != last {
			a.logSummary()
			last = idx
		}

		t := a.clock.NewTimer(a.reportEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if ws.Watch(stop) {
			return
		}
	}
}

func (a *Application) logSummary() {
	counts, err := a.store.Counts()
	if err != nil {
		a.logger.Error("jobwatch: could not count sessions", "error", err)
		return
	}

	ctx := make([]interface{}, 0, 2*len(allStates))
	for _, s := range allStates {
		ctx = append(ctx, s.String(), counts[s])
	}
	a.logger.Info("jobwatch: progress", ctx...)
}

var allStates = []job.State{
	job.StateCreated,
	job.StatePolling,
	job.StateCompleted,
	job.StateFailed,
	job.StateExhausted,
	job.StateCancelled,
}

func errorMessage(err error) string {
	var perr *job.PollError
	if errors.As(err, &perr) && perr.Kind == job.PollFailed {
		return perr.Message
	}
	return err.Error()
}

// Close closes the application.
func (a *Application) Close() error {
	return nil
}
