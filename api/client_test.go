package api_test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/nrwiersma/jobwatch/api"
	"github.com/nrwiersma/jobwatch/pkg/clock"
	"github.com/nrwiersma/jobwatch/pkg/memtransport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc, fn func(cfg *api.Config)) *api.Client {
	t.Helper()

	cfg := api.NewConfig()
	cfg.URL = "http://jobs.test/api/gemini"
	cfg.Code = "PHOTO2026"
	cfg.HTTPClient = memtransport.New(h).Client()
	cfg.Clock = clock.NewMock(time.Unix(1700000000, 0))
	if fn != nil {
		fn(cfg)
	}

	c, err := api.New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *api.Config
		wantErr bool
	}{
		{
			name: "Valid Config",
			cfg:  api.NewConfig(),
		},
		{
			name:    "Nil Config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name:    "Empty URL",
			cfg:     &api.Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.New(tt.cfg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_Call(t *testing.T) {
	var gotReq api.Request
	var gotHeader http.Header
	h := func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		_, _ = w.Write([]byte(`{"result":{"status":"processing"}}`))
	}
	c := newClient(t, h, nil)

	got, err := c.Call(context.Background(), api.ActionGetJobStatus, api.JobStatusData{JobID: "job-42"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"processing"}`, string(got))
	assert.Equal(t, "PHOTO2026", gotReq.Code)
	assert.Equal(t, api.ActionGetJobStatus, gotReq.Action)
	assert.Equal(t, map[string]interface{}{"jobId": "job-42"}, gotReq.Data)
	assert.Empty(t, gotReq.Timestamp)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "1700000000000", gotHeader.Get(api.HeaderTimestamp))
	assert.NotEmpty(t, gotHeader.Get(api.HeaderRequestID))
	assert.Empty(t, gotHeader.Get(api.HeaderSignature))
}

func TestClient_CallSigned(t *testing.T) {
	secret := []byte("secret")
	var body []byte
	var gotHeader http.Header
	h := func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)

		_, _ = w.Write([]byte(`{"result":{"jobId":"job-1"}}`))
	}
	c := newClient(t, h, func(cfg *api.Config) {
		cfg.Secret = secret
	})

	_, err := c.Call(context.Background(), api.ActionGetJobStatus, api.JobStatusData{JobID: "job-1"})

	require.NoError(t, err)
	ts := gotHeader.Get(api.HeaderTimestamp)
	assert.True(t, api.Verify(secret, ts, body, gotHeader.Get(api.HeaderSignature)))
	assert.Equal(t, api.ActionGetJobStatus, gotHeader.Get(api.HeaderAction))

	var req struct {
		Data      string `json:"data"`
		Timestamp string `json:"_t"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, ts, req.Timestamp)
	var data api.JobStatusData
	require.NoError(t, api.DecodeData(req.Data, &data))
	assert.Equal(t, "job-1", data.JobID)
}

func TestClient_CallErrors(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "Non JSON Status Error",
			code: http.StatusBadGateway,
			body: "<html>bad gateway</html>",
			check: func(t *testing.T, err error) {
				var statusErr *api.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusBadGateway, statusErr.Code)
				assert.Equal(t, "<html>bad gateway</html>", statusErr.Body)
				assert.Nil(t, statusErr.Service)
			},
		},
		{
			name: "JSON Status Error",
			code: http.StatusTooManyRequests,
			body: `{"error":"RATE_LIMIT_EXCEEDED","retryAfter":30}`,
			check: func(t *testing.T, err error) {
				var statusErr *api.StatusError
				require.True(t, errors.As(err, &statusErr))
				require.NotNil(t, statusErr.Service)
				assert.Equal(t, api.CodeRateLimitExceeded, statusErr.Service.Code)
				assert.Equal(t, 30, statusErr.Service.RetryAfter)
				assert.Contains(t, err.Error(), "retry after 30s")
			},
		},
		{
			name: "Service Error In Success",
			code: http.StatusOK,
			body: `{"error":"INVALID_INVITE_CODE"}`,
			check: func(t *testing.T, err error) {
				var svcErr *api.ServiceError
				require.True(t, errors.As(err, &svcErr))
				assert.Equal(t, api.CodeInvalidInviteCode, svcErr.Code)
			},
		},
		{
			name: "Not JSON",
			code: http.StatusOK,
			body: "not json",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, api.ErrMalformedResponse))
			},
		},
		{
			name: "Missing Result",
			code: http.StatusOK,
			body: `{"action":"getJobStatus"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, api.ErrMalformedResponse))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}
			c := newClient(t, h, nil)

			_, err := c.Call(context.Background(), api.ActionGetJobStatus, nil)

			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_CallStatusErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	h := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(long)
	}
	c := newClient(t, h, nil)

	_, err := c.Call(context.Background(), api.ActionSubmitJob, nil)

	var statusErr *api.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Len(t, statusErr.Body, 200)
}

func TestClient_CallTransportError(t *testing.T) {
	h := func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}
	c := newClient(t, h, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, api.ActionGetJobStatus, nil)

	var transportErr *api.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_CallInvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		secret []byte
	}{
		{
			name: "Plain",
		},
		{
			name:   "Signed",
			secret: []byte("secret"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := func(w http.ResponseWriter, r *http.Request) {
				calls++
			}
			c := newClient(t, h, func(cfg *api.Config) {
				cfg.Secret = tt.secret
			})

			_, err := c.Call(context.Background(), api.ActionSubmitJob, api.SubmitJobData{Action: "a", Data: math.Inf(1)})

			require.Error(t, err)
			assert.True(t, errors.Is(err, api.ErrInvalidRequest))
			var transportErr *api.TransportError
			assert.False(t, errors.As(err, &transportErr))
			assert.Equal(t, 0, calls)
		})
	}
}

func TestClient_CallRateLimited(t *testing.T) {
	calls := 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"result":{}}`))
	}
	c := newClient(t, h, func(cfg *api.Config) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	_, err := c.Call(context.Background(), api.ActionGetJobStatus, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Call(ctx, api.ActionGetJobStatus, nil)

	var transportErr *api.TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 1, calls)
}
