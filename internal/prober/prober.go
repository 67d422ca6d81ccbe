package prober

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/zincdl/internal/backoff"
	zinchttp "github.com/ligustah/zincdl/internal/http"
	"github.com/ligustah/zincdl/internal/logging"
	"github.com/ligustah/zincdl/internal/progress"
)

// Outcome is the terminal availability of a URL.
type Outcome int

const (
	// Unknown means retries were exhausted or the response was unclassified.
	Unknown Outcome = iota
	// Available means the server answered 200 or 206.
	Available
	// NotFound means the server answered 404.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Available:
		return "available"
	case NotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Value maps the outcome to true (available), false (not found) or nil
// (unknown).
func (o Outcome) Value() *bool {
	var v bool
	switch o {
	case Available:
		v = true
	case NotFound:
		v = false
	default:
		return nil
	}
	return &v
}

// Result is the outcome for one URL.
type Result struct {
	URL      string
	Outcome  Outcome
	Attempts int
}

// Options configures a probe batch.
type Options struct {
	// Concurrency is the maximum number of in-flight requests.
	// Default: 4
	Concurrency int

	// Timeout bounds each request.
	// Default: 5s
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
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
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

// ProbeBatch checks the availability of every URL and returns one Result
// per URL, index-aligned with urls regardless of completion order.
//
// Individual failures never abort the batch. If ctx is cancelled, URLs
// that have not reached a terminal outcome are reported as Unknown.
func ProbeBatch(ctx context.Context, urls []string, opts Options) []Result {
	opts.applyDefaults()
	log := logging.Batch(opts.Logger, "probe")

	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	pool := zinchttp.NewPool(zinchttp.Options{
		MaxConcurrent:     opts.Concurrency,
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		Headers:           zinchttp.ProbeHeaders(),
	})
	defer pool.Close()

	log.Debug().
		Int("urls", len(urls)).
		Int("concurrency", opts.Concurrency).
		Int("max_retries", opts.Policy.MaxRetries).
		Msg("probing")

	workers := opts.MaxPending
	if workers > len(urls) {
		workers = len(urls)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = probe(ctx, pool, urls[idx], &opts, log)
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var available, notFound, unknown int
	for _, r := range results {
		switch r.Outcome {
		case Available:
			available++
		case NotFound:
			notFound++
		default:
			unknown++
		}
	}
	log.Info().
		Int("available", available).
		Int("not_found", notFound).
		Int("unknown", unknown).
		Int("max_in_flight", pool.MaxInFlight()).
		Msg("probe complete")

	return results
}

// probe runs the attempt loop for a single URL.
func probe(ctx context.Context, pool *zinchttp.Pool, url string, opts *Options, log zerolog.Logger) Result {
	opts.Progress.ItemStarted()

	res := Result{URL: url, Outcome: Unknown}
	for attempt := 0; ctx.Err() == nil; attempt++ {
		status, err := head(ctx, pool, url, opts.Timeout)
		res.Attempts++
		if err != nil && ctx.Err() != nil {
			break
		}

		d := opts.Policy.Probe(status, err, attempt)
		if !d.Retry {
			res.Outcome = outcomeOf(d.Class)
			break
		}

		ev := log.Debug().Str("url", url).Int("attempt", attempt).Dur("delay", d.Delay)
		if err != nil {
			ev = ev.Err(err)
		} else {
			ev = ev.Int("status", status)
		}
		ev.Msg("probe retry")

		if err := opts.Sleep(ctx, d.Delay); err != nil {
			break
		}
	}

	if res.Outcome == Available {
		opts.Progress.ItemCompleted(0)
	} else {
		opts.Progress.ItemFailed()
		log.Debug().Str("url", url).Stringer("outcome", res.Outcome).Int("attempts", res.Attempts).Msg("unavailable")
	}
	return res
}

func head(ctx context.Context, pool *zinchttp.Pool, url string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Head(ctx, url)
}

func outcomeOf(c backoff.Class) Outcome {
	switch c {
	case backoff.Available:
		return Available
	case backoff.NotFound:
		return NotFound
	default:
		return Unknown
	}
}

// Available returns the URLs whose outcome is Available, in input order.
func Available(results []Result) []string {
	var urls []string
	for _, r := range results {
		if r.Outcome == Available {
			urls = append(urls, r.URL)
		}
	}
	return urls
}
