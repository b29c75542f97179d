package entity

import (
	"fmt"
	"math/big"
)

// phaseOffset is the bit position of the phase id inside a composite round id.
const phaseOffset = 64

var aggregatorRoundMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), phaseOffset), big.NewInt(1))

// RoundData is the decoded return value of getRoundData / latestRoundData.
//
// RoundID and AnsweredInRound are composite 80-bit ids: the top 16 bits are the
// phase, the low 64 bits the aggregator-local round.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// RoundPhase extracts the phase id from a composite round id.
func RoundPhase(roundID *big.Int) uint16 {
	return uint16(new(big.Int).Rsh(roundID, phaseOffset).Uint64())
}

// AggregatorRound extracts the aggregator-local round from a composite round id.
func AggregatorRound(roundID *big.Int) uint64 {
	return new(big.Int).And(roundID, aggregatorRoundMask).Uint64()
}

// ComposeRoundID builds the composite round id for phase and aggregator round.
func ComposeRoundID(phase uint16, aggregatorRound uint64) *big.Int {
	id := new(big.Int).Lsh(big.NewInt(int64(phase)), phaseOffset)
	return id.Or(id, new(big.Int).SetUint64(aggregatorRound))
}

// Complete reports whether the round has been answered.
func (r RoundData) Complete() bool {
	return r.UpdatedAt != nil && r.UpdatedAt.Sign() > 0
}

func (r RoundData) String() string {
	return fmt.Sprintf("roundId=%s (phase %d, round %d) answer=%s startedAt=%s updatedAt=%s answeredInRound=%s",
		r.RoundID, RoundPhase(r.RoundID), AggregatorRound(r.RoundID),
		r.Answer, r.StartedAt, r.UpdatedAt, r.AnsweredInRound)
}
