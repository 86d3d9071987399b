package report

import (
	"context"
	"errorgate/internal/apperrors"
	"errorgate/internal/boundary"
	"errorgate/internal/testutil"
	"errorgate/pkg/cloudevent"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func serverError() *apperrors.Error {
	return &apperrors.Error{
		Status:    apperrors.StatusUnexpected,
		Code:      "ER9999",
		Message:   "No description configured.",
		Component: "errorgate",
		ErrorType: apperrors.TypeTechnical,
		Cause:     errors.New("database unavailable"),
	}
}

func fastConfig(url string) Config {
	return Config{
		URL:            url,
		BufferSize:     16,
		Workers:        1,
		HTTPTimeout:    2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func closeReporter(t *testing.T, r *Reporter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestReporter_DeliversServerErrors(t *testing.T) {
	t.Parallel()
	var (
		mu     sync.Mutex
		events []cloudevent.CloudEvent
		sigOK  atomic.Bool
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev, err := cloudevent.Decode(r, "report-key")
		sigOK.Store(err == nil)
		if err == nil {
			mu.Lock()
			events = append(events, *ev)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.SigningKey = "report-key"
	r := New(cfg, nil)
	defer closeReporter(t, r)

	req := &boundary.RequestInfo{Method: "GET", Path: "/test/panic"}
	if !r.Report(context.Background(), serverError(), req) {
		t.Fatal("expected report to be queued")
	}

	testutil.MustWaitFor(t, func() bool {
		return r.Stats().Delivered == 1
	}, testutil.WithTimeout(5*time.Second), testutil.WithInterval(10*time.Millisecond))

	if !sigOK.Load() {
		t.Error("expected a valid signature")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != EventType || ev.Source != defaultSource || ev.Subject != "ER9999" || ev.ID == "" {
		t.Errorf("unexpected event envelope %+v", ev)
	}
	if ev.Data["cause"] != "database unavailable" || ev.Data["path"] != "/test/panic" {
		t.Errorf("unexpected event data %v", ev.Data)
	}
	if ev.Data["httpStatus"] != float64(500) || ev.Data["status"] != "UNEXPECTED" {
		t.Errorf("unexpected status data %v", ev.Data)
	}
}

func TestReporter_SkipsClientErrors(t *testing.T) {
	t.Parallel()
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := New(fastConfig(server.URL), nil)

	if !r.Report(context.Background(), apperrors.NotFound("order", "1"), nil) {
		t.Error("expected skipped report to count as handled")
	}
	if !r.Report(context.Background(), nil, nil) {
		t.Error("expected nil record to be skipped")
	}

	closeReporter(t, r)

	stats := r.Stats()
	if stats.Skipped != 2 || stats.Queued != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if received.Load() != 0 {
		t.Errorf("expected no deliveries, got %d", received.Load())
	}
}

func TestReporter_RetriesServerFailures(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := New(fastConfig(server.URL), nil)
	defer closeReporter(t, r)

	r.Report(context.Background(), serverError(), nil)

	testutil.MustWaitFor(t, func() bool {
		return r.Stats().Delivered == 1
	}, testutil.WithTimeout(5*time.Second), testutil.WithInterval(10*time.Millisecond))

	if got := r.Stats().RetriesTotal; got != 2 {
		t.Errorf("expected 2 retries, got %d", got)
	}
}

func TestReporter_NoRetryOnClientError(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	r := New(fastConfig(server.URL), nil)
	defer closeReporter(t, r)

	r.Report(context.Background(), serverError(), nil)

	testutil.MustWaitFor(t, func() bool {
		return r.Stats().Failed == 1
	}, testutil.WithTimeout(5*time.Second), testutil.WithInterval(10*time.Millisecond))

	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestReporter_BufferFull(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var received atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.BufferSize = 1
	r := New(cfg, nil)

	ctx := context.Background()
	r.Report(ctx, serverError(), nil)
	// The single worker is now blocked in the handler.
	testutil.MustWaitForCount(t, &received, 1, testutil.WithTimeout(5*time.Second), testutil.WithInterval(10*time.Millisecond))

	if !r.Report(ctx, serverError(), nil) {
		t.Fatal("expected second report to fill the buffer")
	}
	if r.Report(ctx, serverError(), nil) {
		t.Error("expected third report to be dropped")
	}

	close(release)
	closeReporter(t, r)

	stats := r.Stats()
	if stats.Dropped != 1 || stats.Delivered != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestReporter_CloseDrainsAndRejects(t *testing.T) {
	t.Parallel()
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := New(fastConfig(server.URL), nil)
	for range 5 {
		r.Report(context.Background(), serverError(), nil)
	}
	closeReporter(t, r)

	if received.Load() != 5 {
		t.Errorf("expected all 5 queued reports delivered, got %d", received.Load())
	}
	if err := r.Ready(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if r.Report(context.Background(), serverError(), nil) {
		t.Error("expected report after close to be dropped")
	}
	// Closing twice is a no-op.
	closeReporter(t, r)
}

func TestConfig_Backoff(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.backoff(tt.attempt); got != tt.expected {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	if cfg.BufferSize != 256 || cfg.Workers != 2 || cfg.MaxRetries != defaultMaxRetries || cfg.Source != defaultSource {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if got := (Config{MaxRetries: -1}).withDefaults().MaxRetries; got != 0 {
		t.Errorf("expected negative retries to disable retrying, got %d", got)
	}
}
