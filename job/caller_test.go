package job_test

import (
	"context"
	"sync"

	"github.com/nrwiersma/jobwatch/api"
)

type reply struct {
	raw string
	err error

	// fn runs before the reply is returned.
	fn func()
}

type call struct {
	Action string
	Data   interface{}
}

// scriptedCaller returns the scripted replies in order, repeating the last one.
type scriptedCaller struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

func newScriptedCaller(replies ...reply) *scriptedCaller {
	return &scriptedCaller{replies: replies}
}

func (c *scriptedCaller) Call(ctx context.Context, action string, data interface{}) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call{Action: action, Data: data})
	idx := len(c.calls) - 1
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	r := c.replies[idx]
	c.mu.Unlock()

	if r.fn != nil {
		r.fn()
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.raw), nil
}

func (c *scriptedCaller) Calls() []call {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]call(nil), c.calls...)
}

func status(s string) reply {
	return reply{raw: `{"status":"` + s + `"}`}
}

func transportErr() reply {
	return reply{err: &api.TransportError{Err: context.DeadlineExceeded}}
}
