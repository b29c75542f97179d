package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MinCompositeVersion is the lowest aggregator version whose round ids follow the
// composite phase/round encoding.
const MinCompositeVersion = 3

// PhaseRecord is one aggregator generation behind a proxy.
type PhaseRecord struct {
	PhaseID    uint16
	Aggregator common.Address
	Version    *big.Int
	Current    bool
}

// Composite reports whether the aggregator uses composite round ids (version > 2).
func (p PhaseRecord) Composite() bool {
	return p.Version != nil && p.Version.Cmp(big.NewInt(MinCompositeVersion)) >= 0
}
