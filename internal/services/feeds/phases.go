package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
)

// ErrUnsetPhase marks a phase slot of the proxy that holds the zero address.
var ErrUnsetPhase = errors.New("phase slot is unset")

// PhaseFailure is a phase that could not be resolved or classified. It is
// reported but never aborts the traversal.
type PhaseFailure struct {
	Phase      uint16
	Aggregator common.Address // zero when the slot itself could not be read
	Err        error
}

// PhaseReport lists the aggregator generations behind a proxy.
type PhaseReport struct {
	Proxy   common.Address
	PhaseID uint16
	// Records is ordered by phase. A record whose version() failed has a nil Version.
	Records  []entity.PhaseRecord
	Failures []PhaseFailure
}

// Current returns the record of the current phase, if it was resolved.
func (r *PhaseReport) Current() (entity.PhaseRecord, bool) {
	return lo.Find(r.Records, func(rec entity.PhaseRecord) bool { return rec.Current })
}

// Phases walks every phase of proxy:
//
//  1. phaseId() and aggregator() on the proxy, each on the single-call path
//  2. one batch of phaseAggregators(p) for p in 1..phaseId-1
//  3. one batch of version() over the discovered aggregators and the current one
//
// Unreadable phases end up in Failures. A transport failure aborts the traversal.
func (s *Service) Phases(ctx context.Context, proxy common.Address) (*PhaseReport, error) {
	head := entity.AggregatorContext{Proxy: proxy}
	phaseID, err := readOne(ctx, s, head, codec.PhaseID, s.codec.DecodePhaseID)
	if err != nil {
		return nil, fmt.Errorf("reading phase of proxy %s: %w", proxy.Hex(), err)
	}
	if phaseID == 0 {
		return nil, fmt.Errorf("proxy %s reports phase 0", proxy.Hex())
	}

	current, err := readOne(ctx, s, head, codec.Aggregator, s.codec.DecodeAddress)
	if err != nil {
		return nil, fmt.Errorf("reading current aggregator of proxy %s: %w", proxy.Hex(), err)
	}

	report := &PhaseReport{Proxy: proxy, PhaseID: phaseID}

	var slots []entity.AggregatorContext
	if phaseID > 1 {
		slots, err = s.enumeratePhases(ctx, proxy, phaseID, report)
		if err != nil {
			return nil, err
		}
	}

	if current == (common.Address{}) {
		report.Failures = append(report.Failures, PhaseFailure{
			Phase: phaseID,
			Err:   fmt.Errorf("current aggregator of %s: %w", proxy.Hex(), ErrUnsetPhase),
		})
	} else {
		slots = append(slots, entity.AggregatorContext{Proxy: proxy, Aggregator: current, Phase: phaseID})
	}

	if len(slots) == 0 {
		return report, nil
	}

	if err := s.classifyPhases(ctx, slots, report); err != nil {
		return nil, err
	}

	s.logger.Debug("phase traversal done",
		"proxy", proxy.Hex(),
		"phaseId", phaseID,
		"records", len(report.Records),
		"failures", len(report.Failures))

	return report, nil
}

// enumeratePhases resolves the aggregators of phases 1..phaseID-1 in one batch.
func (s *Service) enumeratePhases(ctx context.Context, proxy common.Address, phaseID uint16, report *PhaseReport) ([]entity.AggregatorContext, error) {
	reqs := make([]request, 0, phaseID-1)
	for p := uint16(1); p < phaseID; p++ {
		data, err := s.codec.EncodePhaseAggregators(p)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, request{context: entity.AggregatorContext{Proxy: proxy, Phase: p}, data: data})
	}

	outcomes, err := batch(ctx, s, reqs, s.codec.DecodeAddress)
	if err != nil {
		return nil, fmt.Errorf("enumerating phases of proxy %s: %w", proxy.Hex(), err)
	}

	var slots []entity.AggregatorContext
	for _, out := range outcomes {
		slot := out.Context.(entity.AggregatorContext)
		switch {
		case !out.OK():
			report.Failures = append(report.Failures, PhaseFailure{Phase: slot.Phase, Err: out.Err})
		case out.Value == (common.Address{}):
			report.Failures = append(report.Failures, PhaseFailure{Phase: slot.Phase, Err: fmt.Errorf("%s: %w", slot, ErrUnsetPhase)})
		default:
			slot.Aggregator = out.Value
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// classifyPhases reads version() of every slot in one batch and appends the records.
func (s *Service) classifyPhases(ctx context.Context, slots []entity.AggregatorContext, report *PhaseReport) error {
	data, err := s.codec.Encode(codec.Version)
	if err != nil {
		return err
	}
	reqs := lo.Map(slots, func(slot entity.AggregatorContext, _ int) request {
		return request{context: slot, data: data}
	})

	outcomes, err := batch(ctx, s, reqs, s.codec.DecodeVersion)
	if err != nil {
		return fmt.Errorf("reading aggregator versions of proxy %s: %w", report.Proxy.Hex(), err)
	}

	for i, out := range outcomes {
		rec := entity.PhaseRecord{
			PhaseID:    slots[i].Phase,
			Aggregator: slots[i].Aggregator,
			Current:    slots[i].Phase == report.PhaseID,
		}
		if out.OK() {
			rec.Version = out.Value
		} else {
			report.Failures = append(report.Failures, PhaseFailure{Phase: rec.PhaseID, Aggregator: rec.Aggregator, Err: out.Err})
		}
		report.Records = append(report.Records, rec)
	}
	return nil
}

// AboveV2 keeps the records whose aggregator version is greater than 2.
func AboveV2(records []entity.PhaseRecord) []entity.PhaseRecord {
	return lo.Filter(records, func(rec entity.PhaseRecord, _ int) bool {
		return rec.Composite()
	})
}
