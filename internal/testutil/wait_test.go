package testutil

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		succeedAt int64
		timeout   time.Duration
		expected  bool
	}{
		{"immediate", 1, time.Second, true},
		{"eventual", 3, time.Second, true},
		{"never", -1, 50 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int64
			result := WaitFor(t, func() bool {
				n := calls.Add(1)
				return tt.succeedAt > 0 && n >= tt.succeedAt
			}, WithTimeout(tt.timeout), WithInterval(5*time.Millisecond))

			if result != tt.expected {
				t.Errorf("expected %v, got %v after %d calls", tt.expected, result, calls.Load())
			}
			if tt.expected && calls.Load() != tt.succeedAt {
				t.Errorf("expected polling to stop at call %d, got %d", tt.succeedAt, calls.Load())
			}
		})
	}
}

func TestMustWaitForCount(t *testing.T) {
	t.Parallel()
	var counter atomic.Int64

	go func() {
		for range 5 {
			time.Sleep(5 * time.Millisecond)
			counter.Add(1)
		}
	}()

	MustWaitForCount(t, &counter, 5, WithTimeout(time.Second), WithInterval(5*time.Millisecond))
}

func TestWaitOptions(t *testing.T) {
	t.Parallel()
	opts := defaultOptions()
	if opts.Timeout != 5*time.Second || opts.Interval != 20*time.Millisecond {
		t.Errorf("unexpected defaults %+v", opts)
	}

	WithTimeout(time.Minute)(&opts)
	WithInterval(time.Second)(&opts)
	if opts.Timeout != time.Minute || opts.Interval != time.Second {
		t.Errorf("options not applied: %+v", opts)
	}
}

func TestDiscardLogger(t *testing.T) {
	t.Parallel()
	logger := DiscardLogger()
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled")
	}
	logger.Info("dropped")
}
