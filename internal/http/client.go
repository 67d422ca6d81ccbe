package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// UserAgent identifies requests as a regular browser.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) Chrome/122.0 Safari/537.36"

// Common errors.
var (
	ErrNotFound    = errors.New("http: resource not found")
	ErrServerError = errors.New("http: server error")
)

// StatusError reports a response whose status was not the one expected.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.Code, http.StatusText(e.Code))
}

// Is lets errors.Is match StatusError against ErrNotFound and ErrServerError.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrServerError:
		return e.Code >= 500
	}
	return false
}

// Options configures a Pool.
type Options struct {
	// MaxConcurrent is the maximum number of in-flight requests.
	// Default: 4
	MaxConcurrent int

	// Timeout bounds connection setup and waiting for response headers.
	// It does not bound reading the body.
	// Default: 5s
	Timeout time.Duration

	// RequestsPerSecond limits the aggregate request start rate.
	// Zero disables the limiter.
	RequestsPerSecond float64

	// Headers are sent with every request.
	// Default: DefaultHeaders()
	Headers http.Header
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent: 4,
		Timeout:       5 * time.Second,
		Headers:       DefaultHeaders(),
	}
}

// DefaultHeaders returns the browser-like headers sent on downloads.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "*/*")
	h.Set("Connection", "keep-alive")
	return h
}

// ProbeHeaders returns DefaultHeaders plus compressed-transfer acceptance.
// Bodies are never decoded, so this only matters to the server.
func ProbeHeaders() http.Header {
	h := DefaultHeaders()
	h.Set("Accept-Encoding", "gzip, deflate, br")
	return h
}

// Response is a streaming GET response. Closing Body releases the
// Pool slot held by the request.
type Response struct {
	StatusCode    int
	ContentLength int64
	Body          io.ReadCloser
}

// Pool is a connection-limited HTTP transport shared by the tasks of one
// batch call. At most MaxConcurrent requests are in flight at any time.
type Pool struct {
	client  *http.Client
	limiter *rate.Limiter
	headers http.Header
	slots   chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewPool creates a Pool with the given options.
func NewPool(opts Options) *Pool {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Headers == nil {
		opts.Headers = DefaultHeaders()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:       opts.MaxConcurrent,
		MaxIdleConnsPerHost:   opts.MaxConcurrent,
		MaxIdleConns:          opts.MaxConcurrent * 2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		DisableCompression:    true, // bodies are stored as served
	}

	p := &Pool{
		client:  &http.Client{Transport: transport},
		headers: opts.Headers,
		slots:   make(chan struct{}, opts.MaxConcurrent),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p
}

// Head performs a single HEAD request and returns the final status code
// after redirects.
func (p *Pool) Head(ctx context.Context, url string) (int, error) {
	resp, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Get performs a single GET request. The caller must close Body.
func (p *Pool) Get(ctx context.Context, url string) (*Response, error) {
	return p.do(ctx, http.MethodGet, url)
}

func (p *Pool) do(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range p.headers {
		req.Header[k] = append([]string(nil), v...)
	}

	if err := p.acquire(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.release()
		return nil, err
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		Body:          &slotBody{ReadCloser: resp.Body, release: p.release},
	}, nil
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			<-p.slots
			return err
		}
	}

	n := p.inFlight.Add(1)
	for {
		hw := p.maxInFlight.Load()
		if n <= hw || p.maxInFlight.CompareAndSwap(hw, n) {
			break
		}
	}
	return nil
}

func (p *Pool) release() {
	p.inFlight.Add(-1)
	<-p.slots
}

// MaxInFlight returns the highest number of simultaneously held slots
// observed since the Pool was created.
func (p *Pool) MaxInFlight() int {
	return int(p.maxInFlight.Load())
}

// Close tears down idle connections. Requests still in flight are not
// interrupted.
func (p *Pool) Close() {
	p.client.CloseIdleConnections()
}

// slotBody releases its pool slot exactly once when closed.
type slotBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *slotBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
