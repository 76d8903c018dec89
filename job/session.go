package job

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Handle identifies a job on the service.
type Handle string

// String returns the job id.
func (h Handle) String() string {
	return string(h)
}

// State is the state of a poll session.
type State int

// State constants.
const (
	StateCreated State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateExhausted
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal determines if the state can no longer change.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// ErrSessionClosed is returned when a terminal session is used.
var ErrSessionClosed = errors.New("job: session closed")

// Session tracks the polling of a single job.
//
// A Session is owned by one poll loop at a time and is not
// safe for concurrent use. Distinct sessions share nothing.
type Session struct {
	handle Handle
	guard  Guard

	state    State
	attempts int
	started  time.Time
	deadline time.Time
	last     Status
	observed bool
}

// NewSession returns a session for the given job.
func NewSession(h Handle, g Guard) *Session {
	return &Session{
		handle: h,
		guard:  g,
		state:  StateCreated,
	}
}

// Handle returns the job handle.
func (s *Session) Handle() Handle {
	return s.handle
}

// Guard returns the session budget.
func (s *Session) Guard() Guard {
	return s.guard
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Attempts returns the number of status queries issued.
func (s *Session) Attempts() int {
	return s.attempts
}

// Started returns the time polling started.
func (s *Session) Started() time.Time {
	return s.started
}

// Deadline returns the time the session is expected to be exhausted.
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// Last returns the last observed status, if any.
func (s *Session) Last() (Status, bool) {
	return s.last, s.observed
}

func (s *Session) start(now time.Time) error {
	if s.state != StateCreated {
		return errors.Wrapf(ErrSessionClosed, "cannot start session in state %s", s.state)
	}

	s.state = StatePolling
	s.started = now
	s.deadline = s.guard.Deadline(now)
	return nil
}

// attempt records a new status query and returns its 1-indexed number.
func (s *Session) attempt() (int, error) {
	if s.state != StatePolling {
		return 0, errors.Wrapf(ErrSessionClosed, "cannot poll session in state %s", s.state)
	}
	if s.attempts >= s.guard.MaxAttempts {
		return 0, errors.New("job: attempt budget already spent")
	}

	s.attempts++
	return s.attempts, nil
}

func (s *Session) observe(st Status) {
	s.last = st
	s.observed = true
}

func (s *Session) finish(to State) error {
	if !to.Terminal() {
		return errors.Errorf("job: %s is not a terminal state", to)
	}

	switch s.state {
	case StatePolling:
	case StateCreated:
		if to != StateCancelled {
			return errors.Errorf("job: cannot move from %s to %s", s.state, to)
		}
	default:
		return errors.Wrapf(ErrSessionClosed, "cannot move from %s to %s", s.state, to)
	}

	s.state = to
	return nil
}
