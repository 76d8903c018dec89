package job

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard(attempts int) Guard {
	return Guard{Interval: time.Second, MaxAttempts: attempts, CallTimeout: time.Second}
}

func TestNewSession(t *testing.T) {
	sess := NewSession("job-1", testGuard(2))

	assert.Equal(t, Handle("job-1"), sess.Handle())
	assert.Equal(t, StateCreated, sess.State())
	assert.Equal(t, 0, sess.Attempts())
	_, ok := sess.Last()
	assert.False(t, ok)
}

func TestSession_Start(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sess := NewSession("job-1", testGuard(2))

	err := sess.start(now)

	require.NoError(t, err)
	assert.Equal(t, StatePolling, sess.State())
	assert.Equal(t, now, sess.Started())
	assert.Equal(t, now.Add(2*time.Second), sess.Deadline())
}

func TestSession_StartTwice(t *testing.T) {
	sess := NewSession("job-1", testGuard(2))
	require.NoError(t, sess.start(time.Now()))

	err := sess.start(time.Now())

	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSession_Attempt(t *testing.T) {
	sess := NewSession("job-1", testGuard(2))
	require.NoError(t, sess.start(time.Now()))

	n1, err1 := sess.attempt()
	n2, err2 := sess.attempt()
	_, err3 := sess.attempt()

	assert.NoError(t, err1)
	assert.Equal(t, 1, n1)
	assert.NoError(t, err2)
	assert.Equal(t, 2, n2)
	assert.Error(t, err3)
	assert.Equal(t, 2, sess.Attempts())
	assert.True(t, sess.Guard().Exhausted(sess))
}

func TestSession_AttemptBeforeStart(t *testing.T) {
	sess := NewSession("job-1", testGuard(2))

	_, err := sess.attempt()

	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSession_Observe(t *testing.T) {
	sess := NewSession("job-1", testGuard(2))

	sess.observe(Status{Kind: StatusPending})

	last, ok := sess.Last()
	assert.True(t, ok)
	assert.Equal(t, StatusPending, last.Kind)
}

func TestSession_Finish(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{name: "Polling To Completed", from: StatePolling, to: StateCompleted},
		{name: "Polling To Failed", from: StatePolling, to: StateFailed},
		{name: "Polling To Exhausted", from: StatePolling, to: StateExhausted},
		{name: "Polling To Cancelled", from: StatePolling, to: StateCancelled},
		{name: "Created To Cancelled", from: StateCreated, to: StateCancelled},
		{name: "Created To Completed", from: StateCreated, to: StateCompleted, wantErr: true},
		{name: "Polling To Polling", from: StatePolling, to: StatePolling, wantErr: true},
		{name: "Completed To Failed", from: StateCompleted, to: StateFailed, wantErr: true},
		{name: "Cancelled To Cancelled", from: StateCancelled, to: StateCancelled, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewSession("job-1", testGuard(2))
			sess.state = tt.from

			err := sess.finish(tt.to)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.from, sess.State())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.to, sess.State())
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateCreated.Terminal())
	assert.False(t, StatePolling.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.True(t, StateCancelled.Terminal())
}
