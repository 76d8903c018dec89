package job

import (
	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/jobwatch/pkg/clock"
)

// Observation is reported to a ProgressFunc at every attempt boundary.
type Observation struct {
	Handle    Handle
	Attempt   int
	Remaining int

	// Status is the interpreted status. It is only set when
	// the status query succeeded.
	Status Status

	// Transient is true when the status query failed.
	Transient bool

	// Err is the cause of a failed status query. It is only
	// set in verbose mode.
	Err error
}

// ProgressFunc receives poll progress.
type ProgressFunc func(Observation)

type options struct {
	clock    clock.Clock
	log      log.Logger
	stats    stats.Statter
	progress ProgressFunc
	verbose  bool
}

func newOptions(opts []Option) options {
	o := options{
		clock: clock.Real,
		log:   log.Null,
		stats: stats.Null,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Submitter or Poller.
type Option func(*options)

// WithClock sets the clock used for waiting.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithStatter sets the statter.
func WithStatter(s stats.Statter) Option {
	return func(o *options) {
		o.stats = s
	}
}

// WithProgress sets the function receiving poll progress.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithVerbose exposes transient failure causes in poll progress.
func WithVerbose(v bool) Option {
	return func(o *options) {
		o.verbose = v
	}
}
