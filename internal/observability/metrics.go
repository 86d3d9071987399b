package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long requests and report deliveries take
// - Traffic: Request and report throughput
// - Errors: Rendered error records by status and code
// - Saturation: Reporter queue depth
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Boundary metrics
	ErrorsTotal      metric.Int64Counter
	RateLimitedTotal metric.Int64Counter

	// Reporter metrics (Latency, Traffic, Errors, Saturation)
	ReportDuration  metric.Float64Histogram
	ReportDelivered metric.Int64Counter
	ReportFailed    metric.Int64Counter
	ReportDropped   metric.Int64Counter
	ReportQueueSize metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter("errorgate"))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	// Boundary metrics
	m.ErrorsTotal, err = meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of error records rendered by the boundary"),
	)
	if err != nil {
		return nil, err
	}

	m.RateLimitedTotal, err = meter.Int64Counter(
		"rate_limited_total",
		metric.WithDescription("Total number of requests rejected by the rate limiter"),
	)
	if err != nil {
		return nil, err
	}

	// Reporter metrics
	m.ReportDuration, err = meter.Float64Histogram(
		"error_report_duration_seconds",
		metric.WithDescription("Error report delivery latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.ReportDelivered, err = meter.Int64Counter(
		"error_reports_delivered_total",
		metric.WithDescription("Total error reports successfully delivered"),
	)
	if err != nil {
		return nil, err
	}

	m.ReportFailed, err = meter.Int64Counter(
		"error_reports_failed_total",
		metric.WithDescription("Total error reports failed after retries"),
	)
	if err != nil {
		return nil, err
	}

	m.ReportDropped, err = meter.Int64Counter(
		"error_reports_dropped_total",
		metric.WithDescription("Total error reports dropped (buffer full or closed)"),
	)
	if err != nil {
		return nil, err
	}

	m.ReportQueueSize, err = meter.Int64Gauge(
		"error_report_queue_size",
		metric.WithDescription("Current number of error reports in queue (saturation)"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordError counts one rendered error record.
func (m *Metrics) RecordError(ctx context.Context, status, code, errorType string, httpStatus int) {
	attrs := append(errorAttrs(status, code, errorType), statusAttr(httpStatus))
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(ctx context.Context, path string) {
	m.RateLimitedTotal.Add(ctx, 1, metric.WithAttributes(pathAttr(path)))
}

// RecordReportDelivered records a successful report delivery with its duration.
func (m *Metrics) RecordReportDelivered(ctx context.Context, durationSeconds float64) {
	m.ReportDelivered.Add(ctx, 1)
	m.ReportDuration.Record(ctx, durationSeconds)
}

// RecordReportFailed records a report that could not be delivered.
func (m *Metrics) RecordReportFailed(ctx context.Context) {
	m.ReportFailed.Add(ctx, 1)
}

// RecordReportDropped records a report that never reached a worker.
func (m *Metrics) RecordReportDropped(ctx context.Context, reason string) {
	m.ReportDropped.Add(ctx, 1, metric.WithAttributes(dropReasonAttr(reason)))
}

// RecordReportQueueSize records the current queue size.
func (m *Metrics) RecordReportQueueSize(ctx context.Context, size int64) {
	m.ReportQueueSize.Record(ctx, size)
}
