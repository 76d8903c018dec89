package job

import (
	"time"

	"github.com/pkg/errors"
)

// Default polling limits.
const (
	DefaultInterval      = 3 * time.Second
	DefaultMaxAttempts   = 60
	DefaultCallTimeout   = 30 * time.Second
	DefaultSubmitTimeout = 30 * time.Second
)

// ErrInvalidGuard is returned when a guard has unusable limits.
var ErrInvalidGuard = errors.New("job: invalid guard")

// Guard holds the time and attempt budget of a poll session.
//
// Guard is pure bookkeeping; it never sleeps or performs I/O.
type Guard struct {
	// Interval is the time waited between status queries.
	Interval time.Duration

	// MaxAttempts is the maximum number of status queries.
	MaxAttempts int

	// CallTimeout bounds a single status query.
	CallTimeout time.Duration
}

// NewGuard returns a guard with the default limits.
func NewGuard() Guard {
	return Guard{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		CallTimeout: DefaultCallTimeout,
	}
}

// Validate checks that the guard limits are usable.
func (g Guard) Validate() error {
	switch {
	case g.Interval < 0:
		return errors.Wrap(ErrInvalidGuard, "interval cannot be negative")
	case g.MaxAttempts < 1:
		return errors.Wrap(ErrInvalidGuard, "max attempts must be at least 1")
	case g.CallTimeout <= 0:
		return errors.Wrap(ErrInvalidGuard, "call timeout must be positive")
	}
	return nil
}

// TotalBudget returns the approximate time a session may take
// before it is exhausted.
func (g Guard) TotalBudget() time.Duration {
	return g.Interval * time.Duration(g.MaxAttempts)
}

// Deadline returns the time a session started at start is
// expected to be exhausted.
func (g Guard) Deadline(start time.Time) time.Time {
	return start.Add(g.TotalBudget())
}

// AttemptsRemaining returns the number of status queries the
// session may still issue.
func (g Guard) AttemptsRemaining(s *Session) int {
	rem := g.MaxAttempts - s.Attempts()
	if rem < 0 {
		return 0
	}
	return rem
}

// Exhausted determines if the session has used its whole attempt budget.
func (g Guard) Exhausted(s *Session) bool {
	return g.AttemptsRemaining(s) == 0
}
