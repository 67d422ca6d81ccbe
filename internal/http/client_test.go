package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("expected browser user agent, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "*/*" {
			t.Errorf("expected Accept */*, got %q", got)
		}
		if got := r.Header.Get("Accept-Encoding"); got != "gzip, deflate, br" {
			t.Errorf("expected compressed-transfer acceptance, got %q", got)
		}
		w.Header().Set("Content-Length", "1024")
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = ProbeHeaders()
	pool := NewPool(opts)
	defer pool.Close()

	status, err := pool.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
}

func TestHeadFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	pool := NewPool(DefaultOptions())
	defer pool.Close()

	status, err := pool.Head(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("expected final status 404, got %d", status)
	}
}

func TestGetRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "" {
			t.Errorf("downloads should not advertise compression, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte("not really gzip"))
	}))
	defer server.Close()

	pool := NewPool(DefaultOptions())
	defer pool.Close()

	resp, err := pool.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "not really gzip" {
		t.Errorf("expected body served verbatim, got %q", string(body))
	}
}

func TestSlotHeldUntilBodyClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxConcurrent = 1
	pool := NewPool(opts)
	defer pool.Close()

	resp, err := pool.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Head(ctx, server.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second request to block on the slot, got %v", err)
	}

	resp.Body.Close()
	resp.Body.Close() // second close must not release twice

	if _, err := pool.Head(context.Background(), server.URL); err != nil {
		t.Fatalf("Head after release: %v", err)
	}
	if got := len(pool.slots); got != 0 {
		t.Errorf("expected all slots free, got %d held", got)
	}
}

func TestMaxConcurrent(t *testing.T) {
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
		time.Sleep(20 * time.Millisecond)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxConcurrent = 3
	pool := NewPool(opts)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := pool.Head(context.Background(), fmt.Sprintf("%s/%d", server.URL, i)); err != nil {
				t.Errorf("Head: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := peak.Load(); got > 3 {
		t.Errorf("server saw %d concurrent requests, want <= 3", got)
	}
	if got := pool.MaxInFlight(); got > 3 || got < 1 {
		t.Errorf("pool high-water mark %d, want 1..3", got)
	}
}

func TestRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	opts := DefaultOptions()
	opts.RequestsPerSecond = 20
	pool := NewPool(opts)
	defer pool.Close()

	start := time.Now()
	for i := 0; i < 41; i++ {
		if _, err := pool.Head(context.Background(), server.URL); err != nil {
			t.Fatalf("Head: %v", err)
		}
	}
	// burst of 20, then 21 more at 20/s
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("expected limiter to pace requests, finished in %v", elapsed)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code     int
		notFound bool
		server   bool
	}{
		{http.StatusNotFound, true, false},
		{http.StatusServiceUnavailable, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusForbidden, false, false},
	}

	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &StatusError{Code: tt.code})
		if got := errors.Is(err, ErrNotFound); got != tt.notFound {
			t.Errorf("code %d: errors.Is(ErrNotFound) = %v, want %v", tt.code, got, tt.notFound)
		}
		if got := errors.Is(err, ErrServerError); got != tt.server {
			t.Errorf("code %d: errors.Is(ErrServerError) = %v, want %v", tt.code, got, tt.server)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	pool := NewPool(DefaultOptions())
	defer pool.Close()

	if _, err := pool.Head(ctx, server.URL); err == nil {
		t.Error("expected error due to context cancellation")
	}
	if got := len(pool.slots); got != 0 {
		t.Errorf("expected slot released after failed request, got %d held", got)
	}
}
