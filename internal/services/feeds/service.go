// Package feeds queries Chainlink price feeds. Several reads are packed into one
// Multicall3 round trip and every result is reported against the request it
// belongs to; a single read goes straight to eth_call.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/multicall"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// Config holds optional dependencies of the service.
type Config struct {
	Logger  *slog.Logger
	Metrics outbound.QueryMetrics
}

func configDefaults() Config {
	return Config{
		Logger:  slog.Default(),
		Metrics: outbound.NopMetrics{},
	}
}

// Service runs feed queries over a ContractCaller (single reads) and a
// Multicaller (batches). Each call chain is sequential; no state is kept
// between calls.
type Service struct {
	caller      outbound.ContractCaller
	multicaller outbound.Multicaller
	codec       *codec.Codec
	metrics     outbound.QueryMetrics
	logger      *slog.Logger
}

// NewService creates a new feeds service.
func NewService(config Config, caller outbound.ContractCaller, multicaller outbound.Multicaller) (*Service, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller cannot be nil")
	}
	if multicaller == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}

	defaults := configDefaults()
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Metrics == nil {
		config.Metrics = defaults.Metrics
	}

	c, err := codec.New()
	if err != nil {
		return nil, err
	}

	return &Service{
		caller:      caller,
		multicaller: multicaller,
		codec:       c,
		metrics:     config.Metrics,
		logger:      config.Logger.With("component", "feeds"),
	}, nil
}

// request is one call to make, tagged with the context its result is reported against.
type request struct {
	context entity.QueryContext
	data    []byte
}

// query sends a single request straight to the node and anything larger as one batch.
func query[T any](ctx context.Context, s *Service, reqs []request, decode func([]byte) (T, error)) ([]Outcome[T], error) {
	if len(reqs) == 1 {
		out, err := single(ctx, s, reqs[0], decode)
		if err != nil {
			return nil, err
		}
		return []Outcome[T]{out}, nil
	}
	return batch(ctx, s, reqs, decode)
}

// single runs one request on the single-call path. Reverts and decode failures
// become the outcome; transport failures are returned.
func single[T any](ctx context.Context, s *Service, req request, decode func([]byte) (T, error)) (Outcome[T], error) {
	start := time.Now()
	data, err := s.caller.CallContract(ctx, req.context.Target(), req.data, nil)
	if errors.Is(err, outbound.ErrCallReverted) {
		// The round trip worked; the revert is counted as the call's outcome.
		s.metrics.RecordRoundTrip(ctx, "single", 1, time.Since(start), nil)
	} else {
		s.metrics.RecordRoundTrip(ctx, "single", 1, time.Since(start), err)
	}

	var out Outcome[T]
	switch {
	case errors.Is(err, outbound.ErrCallReverted):
		out = callFailed[T](req.context, fmt.Errorf("%s: %w", req.context, err))
	case err != nil:
		return Outcome[T]{}, fmt.Errorf("%s: %w", req.context, err)
	default:
		out = decodeOutcome(req.context, data, decode)
	}

	s.record(ctx, out.Context, out.Status, out.Err)
	return out, nil
}

// batch sends every request in one Multicall3 round trip with AllowFailure set
// and correlates the results back to the requests.
func batch[T any](ctx context.Context, s *Service, reqs []request, decode func([]byte) (T, error)) ([]Outcome[T], error) {
	if len(reqs) == 0 {
		return nil, multicall.ErrEmptyBatch
	}

	calls := lo.Map(reqs, func(r request, _ int) outbound.Call {
		return outbound.Call{Target: r.context.Target(), AllowFailure: true, CallData: r.data}
	})
	contexts := lo.Map(reqs, func(r request, _ int) entity.QueryContext {
		return r.context
	})

	s.logger.Debug("executing batch", "calls", len(calls), "multicall", s.multicaller.Address().Hex())

	start := time.Now()
	results, err := s.multicaller.Execute(ctx, calls, nil)
	s.metrics.RecordRoundTrip(ctx, "batch", len(calls), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("executing batch of %d calls: %w", len(calls), err)
	}

	outcomes, err := Correlate(contexts, results, decode)
	if err != nil {
		return nil, err
	}
	for _, out := range outcomes {
		s.record(ctx, out.Context, out.Status, out.Err)
	}
	return outcomes, nil
}

func (s *Service) record(ctx context.Context, qc entity.QueryContext, status Status, err error) {
	s.metrics.RecordOutcome(ctx, status.String())
	if status != StatusDecoded {
		s.logger.Warn("call failed", "context", qc.String(), "status", status.String(), "error", err)
	}
}
