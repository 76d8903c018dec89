package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/jobwatch/pkg/clock"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"golang.org/x/time/rate"
)

// Request headers.
const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
	HeaderAction    = "X-Action"
	HeaderRequestID = "X-Request-ID"
)

// Client calls the job service.
//
// A Client is safe for concurrent use. Calls are independent
// of each other; only the connection pool and the rate limiter
// are shared.
type Client struct {
	url         string
	code        string
	secret      []byte
	maxBodySize int64

	http    *http.Client
	limiter *rate.Limiter
	clock   clock.Clock

	log   log.Logger
	stats stats.Statter
}

// New returns a service client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("api: config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, errors.New("api: url cannot be empty")
	}

	c := &Client{
		url:         cfg.URL,
		code:        cfg.Code,
		secret:      cfg.Secret,
		maxBodySize: cfg.MaxBodySize,
		http:        cfg.HTTPClient,
		clock:       cfg.Clock,
		log:         cfg.Logger,
		stats:       cfg.Statter,
	}

	if c.maxBodySize <= 0 {
		c.maxBodySize = DefaultMaxBodySize
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.clock == nil {
		c.clock = clock.Real
	}
	if c.log == nil {
		c.log = log.Null
	}
	if c.stats == nil {
		c.stats = stats.Null
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return c, nil
}

// Call posts an action to the service and returns the raw result of the response.
//
// Failures to reach the service are returned as a *TransportError, non-success
// statuses as a *StatusError, service errors in a successful response as a
// *ServiceError and undecodable bodies wrap ErrMalformedResponse. A request
// that cannot be built wraps ErrInvalidRequest and is never sent.
func (c *Client) Call(ctx context.Context, action string, data interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	ts := strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
	body, err := c.encode(action, data, ts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRequest, "error creating request: %v", err)
	}
	reqID := ksuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderRequestID, reqID)
	if len(c.secret) > 0 {
		req.Header.Set(HeaderAction, action)
		req.Header.Set(HeaderSignature, Sign(c.secret, ts, body))
	}

	c.log.Debug("api: sending request", "action", action, "request-id", reqID, "size", len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		c.stats.Inc("api.request", 1, 1.0, "action", action, "status", "error")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.stats.Inc("api.request", 1, 1.0, "action", action, "status", strconv.Itoa(resp.StatusCode))

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.log.Debug("api: received response", "action", action, "request-id", reqID, "status", resp.StatusCode, "size", len(b))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, b)
	}

	var env Envelope
	if err = json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s: %v", snippet(b), err)
	}
	if env.Error != "" {
		return nil, &ServiceError{Code: env.Error}
	}
	if isNull(env.Result) {
		return nil, errors.Wrap(ErrMalformedResponse, "missing result")
	}

	return env.Result, nil
}

func (c *Client) encode(action string, data interface{}, ts string) ([]byte, error) {
	req := Request{
		Code:   c.code,
		Action: action,
		Data:   data,
	}

	if len(c.secret) > 0 {
		req.Timestamp = ts
		if data != nil {
			enc, err := EncodeData(data)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidRequest, "%v", err)
			}
			req.Data = enc
		}
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRequest, "error encoding request: %v", err)
	}
	return b, nil
}

func newStatusError(code int, body []byte) *StatusError {
	err := &StatusError{
		Code: code,
		Body: snippet(body),
	}

	var svcErr ServiceError
	if json.Unmarshal(body, &svcErr) == nil && svcErr.Code != "" {
		err.Service = &svcErr
	}
	return err
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
