package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Label describes the batch (e.g. "Checking availability").
	Label string

	// Total is the number of URLs in the batch.
	Total int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress for a batch of URLs.
// A nil *Reporter is valid and reports nothing.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	done       atomic.Int32
	failed     atomic.Int32
	inProgress atomic.Int32
	bytes      atomic.Int64
	startTime  time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.mu.Unlock()

	go r.updateLoop()
}

// Stop prints the final status and stops the reporter.
func (r *Reporter) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// ItemStarted marks a URL as in progress.
func (r *Reporter) ItemStarted() {
	if r == nil {
		return
	}
	r.inProgress.Add(1)
}

// ItemCompleted marks a URL as finished successfully.
func (r *Reporter) ItemCompleted(size int64) {
	if r == nil {
		return
	}
	r.bytes.Add(size)
	r.done.Add(1)
	r.inProgress.Add(-1)
}

// ItemFailed marks a URL as finished without success.
func (r *Reporter) ItemFailed() {
	if r == nil {
		return
	}
	r.done.Add(1)
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) line() string {
	done := int(r.done.Load())
	var percent float64
	if r.opts.Total > 0 {
		percent = float64(done) / float64(r.opts.Total) * 100
	}

	s := fmt.Sprintf("[zincdl] %s: %.1f%% | %d/%d | %d in-progress | %d failed",
		r.opts.Label,
		percent,
		done,
		r.opts.Total,
		r.inProgress.Load(),
		r.failed.Load(),
	)
	if b := r.bytes.Load(); b > 0 {
		s += " | " + formatBytes(b)
	}
	return s
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	fmt.Fprintf(r.opts.Output, "\r%s    ", r.line())
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	fmt.Fprintf(r.opts.Output, "\r%s    \n", r.line())
	fmt.Fprintf(r.opts.Output, "[zincdl] Total time: %s\n", formatDuration(time.Since(r.startTime)))
}

// formatBytes formats bytes as a human-readable string using binary units.
func formatBytes(b int64) string {
	const (
		KiB = 1024
		MiB = KiB * 1024
		GiB = MiB * 1024
		TiB = GiB * 1024
	)

	switch {
	case b >= TiB:
		return formatUnit(float64(b)/TiB, "TiB")
	case b >= GiB:
		return formatUnit(float64(b)/GiB, "GiB")
	case b >= MiB:
		return formatUnit(float64(b)/MiB, "MiB")
	case b >= KiB:
		return formatUnit(float64(b)/KiB, "KiB")
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatUnit prints whole values at or above 10 without decimals.
func formatUnit(v float64, unit string) string {
	if v >= 10 {
		return fmt.Sprintf("%.0f %s", v, unit)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "8KiB", "1MB").
// Binary suffixes (KiB, MiB, GiB, TiB) use powers of 1024, SI suffixes
// (KB, MB, GB, TB) use powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)

	units := []struct {
		suffix string
		mult   int64
	}{
		{"TiB", 1 << 40},
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"TB", 1000 * 1000 * 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"MB", 1000 * 1000},
		{"KB", 1000},
		{"B", 1},
	}

	var multiplier int64 = 1
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
