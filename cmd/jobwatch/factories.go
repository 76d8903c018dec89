package main

import (
	"context"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch"
	"github.com/nrwiersma/jobwatch/api"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/nrwiersma/jobwatch/tracker"
)

// Application =============================

func newApplication(c *cmd.Context, caller job.Caller, guard job.Guard, store *tracker.Store) (*jobwatch.Application, error) {
	return jobwatch.NewApplication(jobwatch.Config{
		Caller:         caller,
		Store:          store,
		Guard:          guard,
		SubmitTimeout:  c.Duration(flagSubmitTimeout),
		Concurrency:    c.Int(flagConcurrency),
		ReportInterval: c.Duration(flagReportInterval),
		Verbose:        c.Bool(flagVerbose),
		Logger:         c.Logger(),
		Statter:        c.Statter(),
	})
}

// Client ==================================

func newClient(c *cmd.Context, code string) (*api.Client, error) {
	cfg := api.NewConfig()
	cfg.URL = c.String(flagURL)
	cfg.Code = c.String(flagCode)
	if code != "" {
		cfg.Code = code
	}
	if secret := c.String(flagSecret); secret != "" {
		cfg.Secret = []byte(secret)
	}
	cfg.RateLimit = c.Float64(flagRateLimit)
	cfg.Logger = c.Logger()
	cfg.Statter = c.Statter()

	return api.New(cfg)
}

// Job =====================================

func newGuard(c *cmd.Context) (job.Guard, error) {
	g := job.Guard{
		Interval:    c.Duration(flagInterval),
		MaxAttempts: c.Int(flagMaxAttempts),
		CallTimeout: c.Duration(flagCallTimeout),
	}
	return g, g.Validate()
}

func newPoller(c *cmd.Context, caller job.Caller) *job.Poller {
	return job.NewPoller(caller,
		job.WithLogger(c.Logger()),
		job.WithStatter(c.Statter()),
		job.WithVerbose(c.Bool(flagVerbose)),
		job.WithProgress(printProgress(c.App.ErrWriter)),
	)
}

func newSubmitter(c *cmd.Context, caller job.Caller) *job.Submitter {
	return job.NewSubmitter(caller,
		job.WithLogger(c.Logger()),
		job.WithStatter(c.Statter()),
	)
}

// Signals =================================

// signalContext returns a context cancelled on the first interrupt or term signal.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-cmd.WaitForSignals():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
