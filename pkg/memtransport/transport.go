package memtransport

import (
	"net/http"
	"net/http/httptest"

	"github.com/pkg/errors"
)

// Transport is an in memory http.RoundTripper that serves
// every request with a handler, without touching the network.
type Transport struct {
	handler http.Handler
}

// New returns an in memory transport.
func New(h http.Handler) *Transport {
	return &Transport{handler: h}
}

// RoundTrip serves the request with the handler.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.handler == nil {
		return nil, errors.New("memtransport: handler cannot be nil")
	}

	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// Client returns an http client using the transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}
