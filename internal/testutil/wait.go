// Package testutil holds helpers shared by package tests: polling for
// asynchronous effects and quiet loggers.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

// WaitOptions configures WaitFor.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitOption is a functional option for WaitFor.
type WaitOption func(*WaitOptions)

// WithTimeout bounds the total wait (default 5s).
func WithTimeout(d time.Duration) WaitOption {
	return func(o *WaitOptions) {
		o.Timeout = d
	}
}

// WithInterval sets the delay between polls (default 20ms).
func WithInterval(d time.Duration) WaitOption {
	return func(o *WaitOptions) {
		o.Interval = d
	}
}

func defaultOptions() WaitOptions {
	return WaitOptions{
		Timeout:  5 * time.Second,
		Interval: 20 * time.Millisecond,
	}
}

// Counter is any monotonically increasing value, e.g. *atomic.Int64.
type Counter interface {
	Load() int64
}

// WaitFor polls condition until it holds or the timeout expires and reports
// whether it held. condition is evaluated once before the first tick.
func WaitFor(tb testing.TB, condition func() bool, opts ...WaitOption) bool {
	tb.Helper()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Interval <= 0 {
		o.Interval = time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.Timeout)
	defer cancel()

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}
		select {
		case <-ctx.Done():
			// One last look: the effect may have landed while we slept.
			return condition()
		case <-ticker.C:
		}
	}
}

// MustWaitFor is WaitFor that fails the test on timeout.
func MustWaitFor(tb testing.TB, condition func() bool, opts ...WaitOption) {
	tb.Helper()
	if !WaitFor(tb, condition, opts...) {
		tb.Fatal("timed out waiting for condition")
	}
}

// MustWaitForCount waits until counter reaches at least target.
func MustWaitForCount(tb testing.TB, counter Counter, target int64, opts ...WaitOption) {
	tb.Helper()
	ok := WaitFor(tb, func() bool { return counter.Load() >= target }, opts...)
	if !ok {
		tb.Fatalf("timed out waiting for counter to reach %d (current: %d)", target, counter.Load())
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
