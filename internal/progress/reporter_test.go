package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{8192, "8.0 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.5 TiB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"8192", 8192},
		{"8KiB", 8192},
		{"1.5KiB", 1536},
		{"256MiB", 256 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		{"1TiB", 1024 * 1024 * 1024 * 1024},
		{" 64 KiB ", 64 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
		{"1GB", 1000 * 1000 * 1000},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "", "KiB", "-5"} {
		if _, err := ParseBytes(input); err == nil {
			t.Errorf("ParseBytes(%q): expected error", input)
		}
	}
}

func TestReporterItemTracking(t *testing.T) {
	reporter := NewReporter(Options{
		Label:          "Checking availability",
		Total:          4,
		UpdateInterval: 100 * time.Millisecond,
	})

	// Test tracking without starting the reporter
	reporter.ItemStarted()
	if reporter.inProgress.Load() != 1 {
		t.Errorf("expected 1 in-progress, got %d", reporter.inProgress.Load())
	}

	reporter.ItemCompleted(256)
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after complete, got %d", reporter.inProgress.Load())
	}
	if reporter.done.Load() != 1 {
		t.Errorf("expected 1 done, got %d", reporter.done.Load())
	}
	if reporter.bytes.Load() != 256 {
		t.Errorf("expected 256 bytes, got %d", reporter.bytes.Load())
	}

	reporter.ItemStarted()
	reporter.ItemFailed()
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after fail, got %d", reporter.inProgress.Load())
	}
	if reporter.failed.Load() != 1 {
		t.Errorf("expected 1 failed, got %d", reporter.failed.Load())
	}
	if reporter.done.Load() != 2 {
		t.Errorf("expected 2 done, got %d", reporter.done.Load())
	}
}

// syncBuffer guards a bytes.Buffer written by the update loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporterStartStop(t *testing.T) {
	var out syncBuffer
	reporter := NewReporter(Options{
		Label:          "Downloading tranches",
		Total:          2,
		Output:         &out,
		UpdateInterval: 10 * time.Millisecond,
	})

	reporter.Start()

	reporter.ItemStarted()
	reporter.ItemCompleted(2048)

	reporter.ItemStarted()
	reporter.ItemFailed()

	time.Sleep(50 * time.Millisecond) // Let updates run

	reporter.Stop()
	reporter.Stop() // idempotent

	got := out.String()
	if !strings.Contains(got, "[zincdl] Downloading tranches: 100.0% | 2/2 | 0 in-progress | 1 failed | 2.0 KiB") {
		t.Errorf("unexpected final output:\n%s", got)
	}
	if !strings.Contains(got, "Total time:") {
		t.Errorf("expected total time line, got:\n%s", got)
	}
}

func TestNilReporter(t *testing.T) {
	var reporter *Reporter
	reporter.Start()
	reporter.ItemStarted()
	reporter.ItemCompleted(10)
	reporter.ItemFailed()
	reporter.Stop()
}
