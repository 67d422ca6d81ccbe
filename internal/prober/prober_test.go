package prober

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligustah/zincdl/internal/backoff"
)

// script serves a sequence of statuses per path; the last status repeats.
type script struct {
	mu       sync.Mutex
	statuses map[string][]int
	hits     map[string]int
	delay    func(path string) time.Duration
}

func newScript(statuses map[string][]int) *script {
	return &script{statuses: statuses, hits: make(map[string]int)}
}

func (s *script) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodHead {
		http.Error(w, "HEAD only", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	seq, ok := s.statuses[r.URL.Path]
	n := s.hits[r.URL.Path]
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if s.delay != nil {
		time.Sleep(s.delay(r.URL.Path))
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	w.WriteHeader(seq[n])
}

func (s *script) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) Sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return ctx.Err()
}

func testOptions(sleeper *noSleep) Options {
	policy := backoff.Policy{MaxRetries: 3, Jitter: func() float64 { return 0 }}
	return Options{
		Concurrency: 2,
		Timeout:     time.Second,
		Policy:      &policy,
		Sleep:       sleeper.Sleep,
	}
}

func TestProbeBatchScenario(t *testing.T) {
	srv := newScript(map[string][]int{
		"/u1": {http.StatusOK},
		"/u2": {http.StatusNotFound},
		"/u3": {http.StatusServiceUnavailable},
	})
	server := httptest.NewServer(srv)
	defer server.Close()

	urls := []string{server.URL + "/u1", server.URL + "/u2", server.URL + "/u3"}

	results := ProbeBatch(context.Background(), urls, testOptions(&noSleep{}))
	require.Len(t, results, 3)

	assert.Equal(t, urls[0], results[0].URL)
	assert.Equal(t, Available, results[0].Outcome)
	assert.Equal(t, true, *results[0].Outcome.Value())

	assert.Equal(t, urls[1], results[1].URL)
	assert.Equal(t, NotFound, results[1].Outcome)
	assert.Equal(t, false, *results[1].Outcome.Value())

	assert.Equal(t, urls[2], results[2].URL)
	assert.Equal(t, Unknown, results[2].Outcome)
	assert.Nil(t, results[2].Outcome.Value())

	assert.Equal(t, 1, srv.Hits("/u1"))
	assert.Equal(t, 1, srv.Hits("/u2"), "404 must not be retried")
	assert.Equal(t, 4, srv.Hits("/u3"), "503 retried up to max_retries+1 attempts")
	assert.Equal(t, 4, results[2].Attempts)
}

func TestProbeRecoversAfterTransientErrors(t *testing.T) {
	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("ok on attempt %d", n), func(t *testing.T) {
			seq := make([]int, 0, n)
			for i := 1; i < n; i++ {
				seq = append(seq, http.StatusServiceUnavailable)
			}
			seq = append(seq, http.StatusOK)

			srv := newScript(map[string][]int{"/f": seq})
			server := httptest.NewServer(srv)
			defer server.Close()

			sleeper := &noSleep{}
			results := ProbeBatch(context.Background(), []string{server.URL + "/f"}, testOptions(sleeper))

			assert.Equal(t, Available, results[0].Outcome)
			assert.Equal(t, n, results[0].Attempts)
			assert.Len(t, sleeper.delays, n-1)
			for i, d := range sleeper.delays {
				assert.Equal(t, backoff.ExponentialDelay(i, 0), d)
			}
		})
	}
}

func TestProbeOrderPreserved(t *testing.T) {
	statuses := make(map[string][]int)
	var paths []string
	for i := 0; i < 50; i++ {
		path := fmt.Sprintf("/tranche-%02d", i)
		switch i % 3 {
		case 0:
			statuses[path] = []int{http.StatusOK}
		case 1:
			statuses[path] = []int{http.StatusBadGateway, http.StatusOK}
		default:
			// unknown path -> 404
		}
		paths = append(paths, path)
	}

	srv := newScript(statuses)
	srv.delay = func(string) time.Duration {
		return time.Duration(rand.IntN(5)) * time.Millisecond
	}
	server := httptest.NewServer(srv)
	defer server.Close()

	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = server.URL + p
	}

	opts := testOptions(&noSleep{})
	opts.Concurrency = 8
	results := ProbeBatch(context.Background(), urls, opts)

	require.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		if i%3 == 2 {
			assert.Equal(t, NotFound, r.Outcome, r.URL)
		} else {
			assert.Equal(t, Available, r.Outcome, r.URL)
		}
	}
}

func TestProbeConcurrencyBound(t *testing.T) {
	var current, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}))
	defer server.Close()

	urls := make([]string, 30)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/%d", server.URL, i)
	}

	opts := testOptions(&noSleep{})
	opts.Concurrency = 3
	results := ProbeBatch(context.Background(), urls, opts)

	assert.Len(t, Available(results), 30)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestProbeUnclassifiedStatus(t *testing.T) {
	srv := newScript(map[string][]int{"/forbidden": {http.StatusForbidden}})
	server := httptest.NewServer(srv)
	defer server.Close()

	results := ProbeBatch(context.Background(), []string{server.URL + "/forbidden"}, testOptions(&noSleep{}))
	assert.Equal(t, Unknown, results[0].Outcome)
	assert.Equal(t, 1, srv.Hits("/forbidden"))
}

func TestProbeNetworkErrorUsesLinearBackoff(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/gone"
	server.Close() // connection refused from now on

	sleeper := &noSleep{}
	results := ProbeBatch(context.Background(), []string{url}, testOptions(sleeper))

	assert.Equal(t, Unknown, results[0].Outcome)
	assert.Equal(t, 4, results[0].Attempts)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		time.Second,
		1500 * time.Millisecond,
	}, sleeper.delays)
}

func TestProbeTimeoutIsRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
	}))
	defer server.Close()

	opts := testOptions(&noSleep{})
	opts.Timeout = 100 * time.Millisecond
	results := ProbeBatch(context.Background(), []string{server.URL}, opts)

	assert.Equal(t, Available, results[0].Outcome)
	assert.Equal(t, 2, results[0].Attempts)
}

func TestProbeCancelledContext(t *testing.T) {
	srv := newScript(map[string][]int{"/a": {http.StatusOK}, "/b": {http.StatusOK}})
	server := httptest.NewServer(srv)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := []string{server.URL + "/a", server.URL + "/b"}
	results := ProbeBatch(ctx, urls, testOptions(&noSleep{}))

	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		assert.Equal(t, Unknown, r.Outcome)
	}
}

func TestProbeEmpty(t *testing.T) {
	results := ProbeBatch(context.Background(), nil, Options{})
	assert.Empty(t, results)
}

func TestAvailable(t *testing.T) {
	results := []Result{
		{URL: "a", Outcome: Available},
		{URL: "b", Outcome: NotFound},
		{URL: "c", Outcome: Unknown},
		{URL: "d", Outcome: Available},
	}
	assert.Equal(t, []string{"a", "d"}, Available(results))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "available", Available.String())
	assert.Equal(t, "not-found", NotFound.String())
	assert.Equal(t, "unknown", Unknown.String())
}
