// Package http provides the connection-limited transport shared by the
// tasks of one probe or download batch.
//
// This package handles:
//   - A slot semaphore bounding in-flight requests
//   - Browser-like request headers
//   - Raw (undecoded) response bodies
//   - Optional aggregate rate limiting
//
// Retries are not performed here; see package backoff.
//
// # Usage
//
//	pool := http.NewPool(Options{
//	    MaxConcurrent: 4,
//	    Timeout:       5 * time.Second,
//	})
//	defer pool.Close()
//
//	status, err := pool.Head(ctx, url)
//
//	resp, err := pool.Get(ctx, url)
//	defer resp.Body.Close() // releases the slot
package http
