package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// DefaultMaxRetries is the number of retries allowed after the first attempt.
const DefaultMaxRetries = 3

// Class is the terminal classification of a URL.
type Class int

const (
	// Available means the remote confirmed the resource exists.
	Available Class = iota
	// NotFound means the remote confirmed the resource does not exist.
	NotFound
	// Unknown means retries were exhausted or the response was unclassified.
	Unknown
	// Succeeded means the resource body was fully transferred.
	Succeeded
	// Failed means every download attempt failed.
	Failed
)

func (c Class) String() string {
	switch c {
	case Available:
		return "available"
	case NotFound:
		return "not-found"
	case Unknown:
		return "unknown"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Decision is the outcome of applying a Policy to one attempt.
// When Retry is set, the caller waits Delay and tries again; otherwise
// Class is terminal.
type Decision struct {
	Retry bool
	Delay time.Duration
	Class Class
}

func retryAfter(d time.Duration) Decision { return Decision{Retry: true, Delay: d} }

func terminal(c Class) Decision { return Decision{Class: c} }

// Policy maps attempt outcomes to retry or terminal decisions.
// It holds no state beyond its configuration.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Jitter returns a uniform value in [0, 1).
	// Default: math/rand/v2 Float64
	Jitter func() float64
}

// Default returns a Policy with three retries and random jitter.
func Default() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Jitter:     rand.Float64,
	}
}

// Probe classifies the result of an existence check.
// A non-nil err is a transport-level failure and status is ignored.
func (p Policy) Probe(status int, err error, attempt int) Decision {
	var d Decision
	switch {
	case err != nil:
		d = retryAfter(LinearDelay(attempt))
	case status == http.StatusOK || status == http.StatusPartialContent:
		return terminal(Available)
	case status == http.StatusNotFound:
		return terminal(NotFound)
	case isTransientStatus(status):
		d = retryAfter(ExponentialDelay(attempt, p.jitter()))
	default:
		return terminal(Unknown)
	}
	if attempt >= p.MaxRetries {
		return terminal(Unknown)
	}
	return d
}

// Download classifies the result of a whole-file transfer attempt.
// Only a fully streamed 200 response succeeds; everything else is retried
// with linear backoff until the budget is spent.
func (p Policy) Download(status int, err error, attempt int) Decision {
	if err == nil && status == http.StatusOK {
		return terminal(Succeeded)
	}
	if attempt >= p.MaxRetries {
		return terminal(Failed)
	}
	return retryAfter(LinearDelay(attempt))
}

func (p Policy) jitter() float64 {
	if p.Jitter == nil {
		return rand.Float64()
	}
	return p.Jitter()
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ExponentialDelay returns (2^attempt + jitter) / 2 seconds.
func ExponentialDelay(attempt int, jitter float64) time.Duration {
	secs := (math.Pow(2, float64(attempt)) + jitter) / 2
	return time.Duration(secs * float64(time.Second))
}

// LinearDelay returns 0.5 * (attempt + 1) seconds.
func LinearDelay(attempt int) time.Duration {
	return time.Duration(attempt+1) * 500 * time.Millisecond
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
