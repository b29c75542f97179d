package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archon-research/feedquery/internal/ports/outbound"
)

const instrumentationName = "github.com/archon-research/feedquery/internal/services/feeds"

// Compile-time check that Metrics implements outbound.QueryMetrics.
var _ outbound.QueryMetrics = (*Metrics)(nil)

// Metrics records query engine statistics with OpenTelemetry:
//   - feedquery.roundtrip.duration: latency of single calls and batches
//   - feedquery.batch.size: number of calls per round trip
//   - feedquery.roundtrip.errors.total: failed round trips
//   - feedquery.outcomes.total: correlated items by status
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
	outcomes  metric.Int64Counter
}

// NewMetrics creates a recorder on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates a recorder on mp.
func NewMetricsWithProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"feedquery.roundtrip.duration",
		metric.WithDescription("Duration of eth_call round trips in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedquery.roundtrip.duration histogram: %w", err)
	}

	batchSize, err := meter.Int64Histogram(
		"feedquery.batch.size",
		metric.WithDescription("Number of calls per round trip"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedquery.batch.size histogram: %w", err)
	}

	errs, err := meter.Int64Counter(
		"feedquery.roundtrip.errors.total",
		metric.WithDescription("Round trips that failed as a whole"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedquery.roundtrip.errors.total counter: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		"feedquery.outcomes.total",
		metric.WithDescription("Correlated query items by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedquery.outcomes.total counter: %w", err)
	}

	return &Metrics{
		duration:  duration,
		batchSize: batchSize,
		errors:    errs,
		outcomes:  outcomes,
	}, nil
}

// RecordRoundTrip records one single call or batch.
func (m *Metrics) RecordRoundTrip(ctx context.Context, kind string, calls int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	m.duration.Record(ctx, duration.Seconds(), attrs)
	m.batchSize.Record(ctx, int64(calls), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordOutcome counts one correlated item.
func (m *Metrics) RecordOutcome(ctx context.Context, status string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
