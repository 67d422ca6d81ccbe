package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/zincdl/internal/backoff"
	zinchttp "github.com/ligustah/zincdl/internal/http"
	"github.com/ligustah/zincdl/internal/logging"
	"github.com/ligustah/zincdl/internal/progress"
)

// ErrSetup is returned when the output destination cannot be prepared.
// No download is attempted in that case.
var ErrSetup = errors.New("downloader: setup failed")

// ErrNoFileName is recorded for URLs whose path has no final segment.
var ErrNoFileName = errors.New("downloader: url has no file name")

// Options configures the downloader.
type Options struct {
	// Concurrency is the maximum number of in-flight requests.
	// Default: 4
	Concurrency int

	// ChunkSize is the read size used when streaming a body to disk.
	// Default: 8192
	ChunkSize int

	// MaxChunkPause is the upper bound of the random pause between chunks.
	// Default: 50ms. Negative disables the pause.
	MaxChunkPause time.Duration

	// Timeout bounds connection setup and waiting for response headers.
	// Reading the body is not bounded.
	// Default: 30s
	Timeout time.Duration

	// Policy decides retries. Nil means backoff.Default().
	Policy *backoff.Policy

	// MaxPending is the number of URLs being worked on at once, including
	// those waiting out a backoff delay.
	// Default: 4 * Concurrency
	MaxPending int

	// RequestsPerSecond limits the aggregate request rate. Zero disables it.
	RequestsPerSecond float64

	// Sleep waits between attempts.
	// Default: backoff.Sleep
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger receives per-attempt and summary logs. Nil disables logging.
	Logger *zerolog.Logger

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

func (o *Options) applyDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 8192
	}
	if o.MaxChunkPause == 0 {
		o.MaxChunkPause = 50 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Policy == nil {
		p := backoff.Default()
		o.Policy = &p
	}
	if o.MaxPending <= 0 {
		o.MaxPending = 4 * o.Concurrency
	}
	if o.Sleep == nil {
		o.Sleep = backoff.Sleep
	}
}

// Result is the outcome for one URL.
type Result struct {
	URL      string
	Path     string // destination derived from the URL
	OK       bool
	Attempts int
	Bytes    int64
	Err      error // last error when !OK
}

// DownloadBatch downloads every URL into outDir and returns one Result per
// URL in completion order, not input order. Use Result.URL or Result.Path
// to match results to inputs.
//
// outDir is either a local directory, created if missing, or a bucket URL
// such as mem://, s3://bucket or gs://bucket. Failure to prepare it is the
// only error returned; per-URL failures are reported in the results.
func DownloadBatch(ctx context.Context, urls []string, outDir string, opts Options) ([]Result, error) {
	opts.applyDefaults()
	log := logging.Batch(opts.Logger, "download")

	dest, err := openDestination(ctx, outDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	defer dest.Close()

	log.Debug().
		Int("urls", len(urls)).
		Str("out_dir", outDir).
		Int("concurrency", opts.Concurrency).
		Msg("downloading")

	return run(ctx, urls, dest, &opts, log), nil
}

// run downloads urls into an opened destination.
func run(ctx context.Context, urls []string, dest destination, opts *Options, log zerolog.Logger) []Result {
	pool := zinchttp.NewPool(zinchttp.Options{
		MaxConcurrent:     opts.Concurrency,
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		Headers:           zinchttp.DefaultHeaders(),
	})
	defer pool.Close()

	b := &batch{
		opts: opts,
		pool: pool,
		dest: dest,
		log:  log,
	}

	workers := opts.MaxPending
	if workers > len(urls) {
		workers = len(urls)
	}

	jobs := make(chan string)
	results := make(chan Result)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				results <- b.download(ctx, u)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range urls {
			jobs <- u
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Drain as tasks finish.
	out := make([]Result, 0, len(urls))
	var failed int
	var written int64
	for r := range results {
		if !r.OK {
			failed++
		}
		written += r.Bytes
		out = append(out, r)
	}

	log.Info().
		Int("succeeded", len(out)-failed).
		Int("failed", failed).
		Str("written", progress.FormatBytes(written)).
		Int("max_in_flight", pool.MaxInFlight()).
		Msg("download complete")

	return out
}

type batch struct {
	opts *Options
	pool *zinchttp.Pool
	dest destination
	log  zerolog.Logger
}

// download runs the whole-file attempt loop for a single URL.
func (b *batch) download(ctx context.Context, rawURL string) Result {
	b.opts.Progress.ItemStarted()

	res := Result{URL: rawURL}
	name, err := fileName(rawURL)
	if err != nil {
		res.Err = err
		b.finish(&res)
		return res
	}
	res.Path = b.dest.Location(name)

	for attempt := 0; ctx.Err() == nil; attempt++ {
		n, status, err := b.fetch(ctx, rawURL, name)
		res.Attempts++
		if err != nil && ctx.Err() != nil {
			res.Err = err
			break
		}

		d := b.opts.Policy.Download(status, err, attempt)
		if !d.Retry {
			if d.Class == backoff.Succeeded {
				res.OK = true
				res.Bytes = n
				res.Err = nil
			} else {
				res.Err = err
			}
			break
		}
		res.Err = err

		b.log.Debug().
			Str("url", rawURL).
			Int("attempt", attempt).
			Dur("delay", d.Delay).
			Err(err).
			Msg("download retry")

		if err := b.opts.Sleep(ctx, d.Delay); err != nil {
			break
		}
	}

	if !res.OK && res.Err == nil {
		res.Err = ctx.Err()
	}
	b.finish(&res)
	return res
}

func (b *batch) finish(res *Result) {
	if res.OK {
		b.opts.Progress.ItemCompleted(res.Bytes)
		b.log.Debug().Str("url", res.URL).Str("path", res.Path).Int64("bytes", res.Bytes).Msg("downloaded")
		return
	}
	b.opts.Progress.ItemFailed()
	b.log.Warn().Str("url", res.URL).Int("attempts", res.Attempts).Err(res.Err).Msg("download failed")
}

// fetch performs one GET and, on 200, streams the body to the destination.
// The destination only becomes visible if the whole body was written.
func (b *batch) fetch(ctx context.Context, rawURL, name string) (int64, int, error) {
	resp, err := b.pool.Get(ctx, rawURL)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode, &zinchttp.StatusError{Code: resp.StatusCode}
	}

	f, err := b.dest.Create(ctx, name)
	if err != nil {
		return 0, resp.StatusCode, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := b.stream(ctx, f, resp.Body)
	if err != nil {
		f.Abort()
		return n, resp.StatusCode, err
	}
	if err := f.Commit(); err != nil {
		return n, resp.StatusCode, fmt.Errorf("commit %s: %w", name, err)
	}
	return n, resp.StatusCode, nil
}

// stream copies r to w one chunk at a time, pausing a random interval
// after each chunk.
func (b *batch) stream(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, b.opts.ChunkSize)
	var written int64

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			nw, err := w.Write(buf[:n])
			written += int64(nw)
			if err != nil {
				return written, fmt.Errorf("write: %w", err)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read: %w", readErr)
		}
		if n > 0 {
			if err := b.pause(ctx); err != nil {
				return written, err
			}
		}
	}
}

func (b *batch) pause(ctx context.Context) error {
	if b.opts.MaxChunkPause < 0 {
		return ctx.Err()
	}
	return backoff.Sleep(ctx, rand.N(b.opts.MaxChunkPause+1))
}

// fileName returns the final segment of the URL path.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoFileName, rawURL)
	}
	return name, nil
}
