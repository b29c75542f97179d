package feeds

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
)

// ErrNoQualifyingAggregator is returned when no phase of a proxy has an
// aggregator with version above 2.
var ErrNoQualifyingAggregator = errors.New("no aggregator with version above 2")

// HistoryReport is the round history of a proxy.
type HistoryReport struct {
	Proxy      common.Address
	Phases     *PhaseReport
	Aggregator entity.PhaseRecord

	ProxyLatest      entity.RoundData
	AggregatorLatest entity.RoundData
	Offset           *big.Int

	// Rounds is ascending by round id. Every entry was read through the proxy.
	Rounds []Outcome[entity.RoundData]
}

// History reads the last n rounds of proxy.
//
// The latest round id of the proxy and of the newest aggregator with version
// above 2 give the offset between proxy and aggregator numbering. The last n
// proxy round ids not below offset+1 are then read with getRoundData in one
// batch against the proxy. Reading old rounds directly from the aggregator is
// not supported.
func (s *Service) History(ctx context.Context, proxy common.Address, n int) (*HistoryReport, error) {
	if n < 1 {
		return nil, fmt.Errorf("round count must be at least 1, got %d", n)
	}

	phases, err := s.Phases(ctx, proxy)
	if err != nil {
		return nil, err
	}

	qualifying := AboveV2(phases.Records)
	if len(qualifying) == 0 {
		return nil, fmt.Errorf("proxy %s: %w", proxy.Hex(), ErrNoQualifyingAggregator)
	}
	chosen := lo.MaxBy(qualifying, func(a, b entity.PhaseRecord) bool {
		return a.PhaseID > b.PhaseID
	})

	data, err := s.codec.Encode(codec.LatestRoundData)
	if err != nil {
		return nil, err
	}
	latest, err := batch(ctx, s, []request{
		{context: entity.RoundContext{Oracle: proxy}, data: data},
		{context: entity.RoundContext{Oracle: chosen.Aggregator}, data: data},
	}, s.codec.DecodeRoundData)
	if err != nil {
		return nil, fmt.Errorf("reading latest rounds: %w", err)
	}
	for _, out := range latest {
		if !out.OK() {
			return nil, fmt.Errorf("reading latest round: %w", out.Err)
		}
	}

	report := &HistoryReport{
		Proxy:            proxy,
		Phases:           phases,
		Aggregator:       chosen,
		ProxyLatest:      latest[0].Value,
		AggregatorLatest: latest[1].Value,
	}

	report.Offset, err = RoundOffset(report.ProxyLatest.RoundID, report.AggregatorLatest.RoundID)
	if err != nil {
		return nil, err
	}

	ids, err := RoundRange(report.ProxyLatest.RoundID, report.Offset, n)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return report, nil
	}

	reqs, err := s.roundRequests(proxy, ids)
	if err != nil {
		return nil, err
	}
	report.Rounds, err = batch(ctx, s, reqs, s.codec.DecodeRoundData)
	if err != nil {
		return nil, fmt.Errorf("reading %d rounds of proxy %s: %w", len(ids), proxy.Hex(), err)
	}

	s.logger.Debug("history read",
		"proxy", proxy.Hex(),
		"aggregator", chosen.Aggregator.Hex(),
		"offset", report.Offset.String(),
		"rounds", len(report.Rounds))

	return report, nil
}

// RoundOffset is proxyRoundID - aggregatorRoundID. It fails when the aggregator
// round is ahead of the proxy round.
func RoundOffset(proxyRoundID, aggregatorRoundID *big.Int) (*big.Int, error) {
	p, err := toUint256(proxyRoundID)
	if err != nil {
		return nil, fmt.Errorf("proxy round id: %w", err)
	}
	a, err := toUint256(aggregatorRoundID)
	if err != nil {
		return nil, fmt.Errorf("aggregator round id: %w", err)
	}
	if p.Lt(a) {
		return nil, fmt.Errorf("aggregator round %s is ahead of proxy round %s", aggregatorRoundID, proxyRoundID)
	}
	return new(uint256.Int).Sub(p, a).ToBig(), nil
}

// RoundRange returns the proxy round ids max(latest-n+1, offset+1)..latest in
// ascending order. The range never reaches below the first round of the phase
// given by offset.
func RoundRange(latest, offset *big.Int, n int) ([]*big.Int, error) {
	if n < 1 {
		return nil, fmt.Errorf("round count must be at least 1, got %d", n)
	}
	l, err := toUint256(latest)
	if err != nil {
		return nil, fmt.Errorf("latest round id: %w", err)
	}
	o, err := toUint256(offset)
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}

	lower, overflow := new(uint256.Int).AddOverflow(o, uint256.NewInt(1))
	if overflow {
		return nil, fmt.Errorf("offset %s overflows", offset)
	}
	span := uint256.NewInt(uint64(n - 1))
	if !l.Lt(span) {
		if from := new(uint256.Int).Sub(l, span); from.Gt(lower) {
			lower = from
		}
	}

	var ids []*big.Int
	for id := lower.Clone(); !id.Gt(l); id.AddUint64(id, 1) {
		ids = append(ids, id.ToBig())
		if id.Eq(l) {
			break
		}
	}
	return ids, nil
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %v", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value %s exceeds 256 bits", v)
	}
	return u, nil
}
