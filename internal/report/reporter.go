// Package report ships server-side failures to a webhook as CloudEvents.
// Reports are queued in a bounded channel and delivered by a worker pool;
// when the buffer is full, reports are dropped (logged + metric incremented).
package report

import (
	"context"
	"errorgate/internal/apperrors"
	"errorgate/internal/boundary"
	"errorgate/pkg/cloudevent"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventType is the CloudEvent type of every report.
const EventType = "com.errorgate.error.reported"

// ErrClosed is returned by Ready once the reporter has been closed.
var ErrClosed = errors.New("reporter is closed")

// MetricsRecorder is an optional interface for recording reporter metrics.
type MetricsRecorder interface {
	RecordReportDelivered(ctx context.Context, durationSeconds float64)
	RecordReportFailed(ctx context.Context)
	RecordReportDropped(ctx context.Context, reason string)
	RecordReportQueueSize(ctx context.Context, size int64)
}

// Stats holds reporter statistics.
type Stats struct {
	QueueDepth   int   // current queue size
	Queued       int64 // total reports queued
	Skipped      int64 // records below the reporting threshold
	Delivered    int64 // successful deliveries
	Failed       int64 // failed after retries
	Dropped      int64 // dropped due to full buffer or shutdown
	RetriesTotal int64 // total retry attempts
}

// Reporter is an in-memory async error reporter.
type Reporter struct {
	queue   chan *cloudevent.CloudEvent
	sink    *cloudevent.Sink
	config  Config
	logger  *slog.Logger
	metrics MetricsRecorder

	// Internal counters (for Stats())
	queued       atomic.Int64
	skipped      atomic.Int64
	delivered    atomic.Int64
	failed       atomic.Int64
	dropped      atomic.Int64
	retriesTotal atomic.Int64

	mu       sync.RWMutex // guards sends on queue against close
	wg       sync.WaitGroup
	shutdown chan struct{}
	closed   atomic.Bool
}

// New creates a reporter and starts its workers.
func New(cfg Config, metrics MetricsRecorder) *Reporter {
	cfg = cfg.withDefaults()

	r := &Reporter{
		queue:    make(chan *cloudevent.CloudEvent, cfg.BufferSize),
		sink:     cloudevent.NewSink(cfg.URL, cfg.SigningKey, cfg.HTTPTimeout),
		config:   cfg,
		logger:   slog.With("component", "reporter"),
		metrics:  metrics,
		shutdown: make(chan struct{}),
	}

	// Start workers
	r.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go r.worker()
	}

	// Start queue size reporter if metrics enabled
	if metrics != nil {
		go r.reportQueueSize()
	}

	r.logger.Info("Reporter started", "destination", r.sink.Host(), "workers", cfg.Workers, "buffer", cfg.BufferSize)
	return r
}

// reportQueueSize periodically reports the queue size metric.
func (r *Reporter) reportQueueSize() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.metrics.RecordReportQueueSize(context.Background(), int64(len(r.queue)))
		}
	}
}

// Report queues rec for delivery. Records below HTTP 500 are skipped and
// count as handled. It never blocks and returns false only when the report
// was dropped.
func (r *Reporter) Report(ctx context.Context, rec *apperrors.Error, req *boundary.RequestInfo) bool {
	if rec == nil || rec.HTTPStatus() < 500 {
		r.skipped.Add(1)
		return true
	}

	event := cloudevent.New(EventType, r.config.Source, rec.Code, eventData(rec, req))

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		r.drop(ctx, "closed", event)
		return false
	}

	select {
	case r.queue <- event:
		r.queued.Add(1)
		return true
	default:
		r.drop(ctx, "buffer_full", event)
		return false
	}
}

func (r *Reporter) drop(ctx context.Context, reason string, event *cloudevent.CloudEvent) {
	r.dropped.Add(1)
	if r.metrics != nil {
		r.metrics.RecordReportDropped(ctx, reason)
	}
	r.logger.WarnContext(ctx, "Report dropped", "reason", reason, "code", event.Subject)
}

// eventData is the report payload. Unlike the wire body it carries the
// internal status and the cause.
func eventData(rec *apperrors.Error, req *boundary.RequestInfo) map[string]any {
	data := map[string]any{
		"status":     string(rec.Status),
		"httpStatus": rec.HTTPStatus(),
		"code":       rec.Code,
		"message":    rec.Message,
		"component":  rec.Component,
		"errorType":  string(rec.ErrorType),
	}
	if rec.Cause != nil {
		data["cause"] = rec.Cause.Error()
	}
	if req != nil {
		data["method"] = req.Method
		data["path"] = req.Path
	}
	return data
}

// Stats returns current reporter statistics.
func (r *Reporter) Stats() Stats {
	return Stats{
		QueueDepth:   len(r.queue),
		Queued:       r.queued.Load(),
		Skipped:      r.skipped.Load(),
		Delivered:    r.delivered.Load(),
		Failed:       r.failed.Load(),
		Dropped:      r.dropped.Load(),
		RetriesTotal: r.retriesTotal.Load(),
	}
}

// Ready reports whether the reporter still accepts reports.
func (r *Reporter) Ready(_ context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close stops accepting reports and waits for queued ones to be delivered.
// The context deadline controls how long to wait for drain.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed.Swap(true) {
		r.mu.Unlock()
		return nil // already closed
	}
	r.mu.Unlock()

	r.logger.Info("Reporter shutting down", "queued", len(r.queue))

	// Signal workers to stop
	close(r.shutdown)

	// Wait for workers with timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Reporter shutdown complete",
			"delivered", r.delivered.Load(),
			"failed", r.failed.Load(),
			"dropped", r.dropped.Load(),
		)
		return nil
	case <-ctx.Done():
		r.logger.Warn("Reporter shutdown timed out", "remaining", len(r.queue))
		return ctx.Err()
	}
}

// worker processes reports from the queue.
func (r *Reporter) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			// Drain remaining reports before exiting
			r.drainQueue()
			return
		case event := <-r.queue:
			r.deliver(event)
		}
	}
}

// drainQueue delivers remaining reports after shutdown signal.
func (r *Reporter) drainQueue() {
	for {
		select {
		case event := <-r.queue:
			r.deliver(event)
		default:
			return // queue empty
		}
	}
}

// deliver attempts to deliver one report with retry.
func (r *Reporter) deliver(event *cloudevent.CloudEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDeliverTimeout)
	defer cancel()

	start := time.Now()
	if err := r.sendWithRetry(ctx, event); err != nil {
		r.failed.Add(1)
		if r.metrics != nil {
			r.metrics.RecordReportFailed(ctx)
		}
		r.logger.Warn("Report delivery failed", "destination", r.sink.Host(), "code", event.Subject, "error", err)
		return
	}

	r.delivered.Add(1)
	if r.metrics != nil {
		r.metrics.RecordReportDelivered(ctx, time.Since(start).Seconds())
	}
}

func (r *Reporter) sendWithRetry(ctx context.Context, event *cloudevent.CloudEvent) error {
	var lastErr error
	for attempt := range r.config.MaxRetries + 1 {
		if attempt > 0 {
			r.retriesTotal.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.backoff(attempt)):
			}
		}

		lastErr = r.sink.Send(ctx, event)
		if lastErr == nil {
			return nil
		}
		if !cloudevent.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Verify Reporter implements boundary.Reporter
var _ boundary.Reporter = (*Reporter)(nil)
