package api

import (
	"net/http"
	"time"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/jobwatch/pkg/clock"
)

const (
	// DefaultURL is the default service endpoint.
	DefaultURL = "http://localhost:8788/api/gemini"

	// DefaultMaxBodySize is the default limit on a read response body.
	DefaultMaxBodySize = 64 << 20
)

// Config holds the configuration for a Client.
type Config struct {
	// URL is the service endpoint all calls are posted to.
	URL string

	// Code is the invite code sent with every call.
	Code string

	// Secret enables request signing when set. Signed
	// requests carry their data base64 encoded.
	Secret []byte

	// RateLimit is the maximum number of calls per second
	// made by the client. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the number of calls allowed to burst
	// past the rate limit.
	RateBurst int

	// MaxBodySize is the maximum response body size read.
	MaxBodySize int64

	// HTTPClient is the client used to make calls. Timeouts
	// are controlled per call through the context.
	HTTPClient *http.Client

	// Clock is used to generate request timestamps.
	Clock clock.Clock

	// Logger is the logger to log to.
	Logger log.Logger

	// Statter is the statter to report to.
	Statter stats.Statter
}

// NewConfig creates/returns a default configuration.
func NewConfig() *Config {
	return &Config{
		URL:         DefaultURL,
		RateBurst:   1,
		MaxBodySize: DefaultMaxBodySize,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Clock:   clock.Real,
		Logger:  log.Null,
		Statter: stats.Null,
	}
}
