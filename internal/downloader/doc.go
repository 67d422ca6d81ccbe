// Package downloader fetches whole files for a batch of URLs.
//
// Each URL is saved under the final segment of its path, either in a
// local directory or in a gocloud bucket:
//
//	results, err := downloader.DownloadBatch(ctx, urls, "downloads/zinc", downloader.Options{
//	    Concurrency: 4,
//	    Progress:    progressReporter,
//	})
//
// A non-nil error means the destination could not be prepared and nothing
// was downloaded. Per-URL failures are reported in the results, which come
// back in completion order.
//
// # Retries
//
// Every failure (non-200 status, transport error, short body) is retried
// with a linear delay until the policy's retry budget is used up. A file
// becomes visible only after its full body was written; failed attempts
// leave nothing behind.
//
// # Throttling
//
// Bodies are streamed in ChunkSize pieces with a random pause of up to
// MaxChunkPause after each one. A pool slot stays held until the body is
// fully consumed, so Concurrency bounds open transfers as well as requests.
package downloader
