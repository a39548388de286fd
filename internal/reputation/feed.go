// Package reputation checks URLs against external threat intelligence feeds.
package reputation

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-analyzer/internal/resilience"
)

// Feed names as they appear in api_status.
const (
	SourceSafeBrowsing = "google_safe_browsing"
	SourceVirusTotal   = "virustotal"
	SourcePhishTank    = "phishtank"
	SourceURLhaus      = "urlhaus"
)

// ErrNotConfigured is returned by a feed that needs an API key it does not have.
var ErrNotConfigured = eris.New("API key not configured")

// Verdict is what a feed reports about a URL.
type Verdict struct {
	IsThreat   bool
	Confidence float64
}

// Feed is one threat intelligence source. Check returns an error whenever
// the feed could not give a usable answer.
type Feed interface {
	Name() string
	Check(ctx context.Context, url string) (Verdict, error)
}

// Configurable is implemented by feeds that need credentials. The aggregator
// skips an unconfigured feed without touching its breaker.
type Configurable interface {
	Configured() bool
}

// Option configures a feed's HTTP client.
type Option func(*client)

// WithBaseURL overrides the feed endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, opts []Option) client {
	c := client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

const maxBody = 1 << 20

// send executes req and returns the status code and body. Only transport
// failures are returned as errors.
func (c *client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, eris.Wrap(err, "read response body")
	}
	return resp.StatusCode, body, nil
}

// statusError converts a non-2xx response into an error, marking statuses
// worth tripping a breaker as transient.
func statusError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	err := eris.Errorf("HTTP %d: %s", code, truncate(string(body), 200))
	if resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(err, code)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
