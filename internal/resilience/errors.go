package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// A feed failure is transient when it says the feed itself is struggling:
// throttling, 5xx, timeouts, refused or dropped connections. Only those
// count toward a breaker. A 4xx about one URL, a missing key, or a caller
// cancelling is permanent for that call and leaves the breaker alone.

// TransientError marks a feed response that may succeed on a later scan.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with the HTTP status that caused it.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err should trip a feed's breaker.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		// per-feed timeout
		return true
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

// IsTransientHTTPStatus reports whether a feed's HTTP status means the feed
// is overloaded or failing rather than rejecting the request.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Kind labels err as "transient" or "permanent" for feed logs.
func Kind(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
