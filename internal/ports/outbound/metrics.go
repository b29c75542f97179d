package outbound

import (
	"context"
	"time"
)

// QueryMetrics records batch and per-item statistics of the query engine.
type QueryMetrics interface {
	// RecordRoundTrip records one transport round trip. kind is "single" or "batch".
	RecordRoundTrip(ctx context.Context, kind string, calls int, duration time.Duration, err error)

	// RecordOutcome counts one correlated item by status ("decoded", "call_failed", "decode_failed").
	RecordOutcome(ctx context.Context, status string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRoundTrip(context.Context, string, int, time.Duration, error) {}

func (NopMetrics) RecordOutcome(context.Context, string) {}
