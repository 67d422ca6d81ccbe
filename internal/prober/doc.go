// Package prober checks which URLs of a batch exist on the remote server
// without transferring their bodies.
//
// Every URL gets a HEAD request. Responses and transport errors are run
// through a backoff.Policy until a terminal outcome is reached:
// Available, NotFound or Unknown.
//
// # Ordering
//
// ProbeBatch returns results index-aligned with its input. Contrast with
// downloader.DownloadBatch, which returns results in completion order.
//
// # Concurrency
//
// A fixed set of MaxPending workers pulls URLs from a channel. In-flight
// HEAD requests are bounded separately by Concurrency through a shared
// http.Pool; a worker waiting out a backoff delay does not hold a pool slot.
package prober
