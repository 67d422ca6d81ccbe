// Package backoff decides whether a failed request is retried and how long
// to wait before the next attempt.
//
// Probe responses classify as:
//   - 200, 206: Available
//   - 404: NotFound, never retried
//   - 408, 429, 500, 502, 503, 504: retry after (2^attempt + jitter) / 2 seconds
//   - transport errors and timeouts: retry after 0.5 * (attempt + 1) seconds
//   - anything else: Unknown
//
// Download attempts are binary: a complete 200 transfer succeeds, anything
// else is retried with the linear delay.
//
// Attempts are numbered from zero. A retry verdict on attempt MaxRetries
// becomes terminal (Unknown or Failed), so a URL sees at most MaxRetries+1
// network operations.
package backoff
