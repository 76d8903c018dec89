package memtransport_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/nrwiersma/jobwatch/pkg/memtransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_RoundTrip(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})
	c := memtransport.New(h).Client()

	resp, err := c.Post("http://example.com/api", "text/plain", nil)

	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "POST", resp.Header.Get("X-Method"))
	assert.Equal(t, "ok", string(b))
}

func TestTransport_RoundTripCancelledContext(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c := memtransport.New(h).Client()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	_, err = c.Do(req)

	assert.Error(t, err)
	assert.False(t, called)
}

func TestTransport_RoundTripNilHandler(t *testing.T) {
	c := memtransport.New(nil).Client()

	_, err := c.Get("http://example.com")

	assert.Error(t, err)
}
