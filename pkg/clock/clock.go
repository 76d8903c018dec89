package clock

import (
	"sync"
	"time"
)

// Clock represents a source of time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTimer returns a timer that fires once the duration has elapsed.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single event in the future.
type Timer struct {
	// C receives the time the timer fired.
	C <-chan time.Time

	stop func() bool
}

// Stop prevents the timer from firing. It returns false if
// the timer already fired or was stopped.
func (t *Timer) Stop() bool {
	if t.stop == nil {
		return false
	}
	return t.stop()
}

// Real is a clock backed by the system time.
var Real Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stop: t.Stop}
}

// Mock is a clock that only moves when told to.
//
// By default timers created by the mock advance the clock by their
// duration and have already fired, so code waiting on them never
// blocks. A manual mock instead fires timers once Advance moves the
// clock past their deadline.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	manual  bool
	waits   []time.Duration
	pending []*mockTimer
}

type mockTimer struct {
	at time.Time
	ch chan time.Time
}

// NewMock returns an auto-advancing mock clock set to the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

// NewManualMock returns a mock clock set to the given time whose
// timers only fire on Advance.
func NewManualMock(now time.Time) *Mock {
	return &Mock{now: now, manual: true}
}

// Now returns the current mock time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// NewTimer returns a timer firing d after the current mock time.
func (m *Mock) NewTimer(d time.Duration) *Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waits = append(m.waits, d)
	ch := make(chan time.Time, 1)

	if !m.manual {
		if d > 0 {
			m.now = m.now.Add(d)
		}
		ch <- m.now
		return &Timer{C: ch}
	}

	mt := &mockTimer{at: m.now.Add(d), ch: ch}
	if d <= 0 {
		ch <- m.now
		return &Timer{C: ch}
	}
	m.pending = append(m.pending, mt)
	return &Timer{C: ch, stop: func() bool { return m.remove(mt) }}
}

func (m *Mock) remove(mt *mockTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.pending {
		if p == mt {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing due timers.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)

	pending := m.pending[:0]
	for _, mt := range m.pending {
		if mt.at.After(m.now) {
			pending = append(pending, mt)
			continue
		}
		mt.ch <- m.now
	}
	m.pending = pending
}

// Pending returns the number of timers waiting to fire.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pending)
}

// Waits returns the durations of the timers created, in order.
func (m *Mock) Waits() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	waits := make([]time.Duration, len(m.waits))
	copy(waits, m.waits)
	return waits
}
