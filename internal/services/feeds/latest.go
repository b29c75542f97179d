package feeds

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
)

// LatestAnswers reads latestAnswer() for every pair.
func (s *Service) LatestAnswers(ctx context.Context, pairs []entity.PairContext) ([]Outcome[*big.Int], error) {
	reqs, err := s.pairRequests(pairs, codec.LatestAnswer)
	if err != nil {
		return nil, err
	}
	return query(ctx, s, reqs, s.codec.DecodeLatestAnswer)
}

// LatestRoundData reads latestRoundData() for every pair.
func (s *Service) LatestRoundData(ctx context.Context, pairs []entity.PairContext) ([]Outcome[entity.RoundData], error) {
	reqs, err := s.pairRequests(pairs, codec.LatestRoundData)
	if err != nil {
		return nil, err
	}
	return query(ctx, s, reqs, s.codec.DecodeRoundData)
}

// Description reads description() for every pair.
func (s *Service) Description(ctx context.Context, pairs []entity.PairContext) ([]Outcome[string], error) {
	reqs, err := s.pairRequests(pairs, codec.Description)
	if err != nil {
		return nil, err
	}
	return query(ctx, s, reqs, s.codec.DecodeDescription)
}

// RoundData reads getRoundData(id) on oracle for every round id. Ids must be
// composite round ids that fit in uint80.
func (s *Service) RoundData(ctx context.Context, oracle common.Address, roundIDs []*big.Int) ([]Outcome[entity.RoundData], error) {
	reqs, err := s.roundRequests(oracle, roundIDs)
	if err != nil {
		return nil, err
	}
	return query(ctx, s, reqs, s.codec.DecodeRoundData)
}

// OnchainDecimals reads decimals() from oracle. Unlike the other operations a
// revert or decode failure is returned as an error.
func (s *Service) OnchainDecimals(ctx context.Context, oracle common.Address) (uint8, error) {
	return readOne(ctx, s, entity.PairContext{Oracle: oracle}, codec.Decimals, s.codec.DecodeDecimals)
}

// readOne reads a no-argument method on the single-call path and turns any
// failed outcome into an error.
func readOne[T any](ctx context.Context, s *Service, qc entity.QueryContext, m codec.Method, decode func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := s.codec.Encode(m)
	if err != nil {
		return zero, err
	}
	out, err := single(ctx, s, request{context: qc, data: data}, decode)
	if err != nil {
		return zero, err
	}
	if !out.OK() {
		return zero, fmt.Errorf("reading %s: %w", m, out.Err)
	}
	return out.Value, nil
}

func (s *Service) pairRequests(pairs []entity.PairContext, m codec.Method) ([]request, error) {
	data, err := s.codec.Encode(m)
	if err != nil {
		return nil, err
	}
	reqs := make([]request, len(pairs))
	for i, p := range pairs {
		reqs[i] = request{context: p, data: data}
	}
	return reqs, nil
}

func (s *Service) roundRequests(oracle common.Address, roundIDs []*big.Int) ([]request, error) {
	reqs := make([]request, len(roundIDs))
	for i, id := range roundIDs {
		data, err := s.codec.EncodeGetRoundData(id)
		if err != nil {
			return nil, err
		}
		reqs[i] = request{context: entity.RoundContext{Oracle: oracle, RoundID: id}, data: data}
	}
	return reqs, nil
}
