package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// QueryContext identifies what a call was made for, so its result can be
// reported against the caller's request. It has no on-chain representation.
//
// The set of implementations is closed: PairContext, RoundContext, AggregatorContext.
type QueryContext interface {
	fmt.Stringer
	// Target is the contract the call is sent to.
	Target() common.Address
	queryContext()
}

// PairContext is a token/base pair resolved to its proxy.
type PairContext struct {
	Base     string
	Quote    string
	Oracle   common.Address
	Decimals uint8
}

func (c PairContext) Target() common.Address { return c.Oracle }

func (c PairContext) String() string {
	if c.Base == "" && c.Quote == "" {
		return c.Oracle.Hex()
	}
	return fmt.Sprintf("%s/%s (%s)", c.Base, c.Quote, c.Oracle.Hex())
}

func (PairContext) queryContext() {}

// RoundContext is one round id on an oracle. A nil RoundID stands for the
// latest round.
type RoundContext struct {
	Oracle  common.Address
	RoundID *big.Int
}

func (c RoundContext) Target() common.Address { return c.Oracle }

func (c RoundContext) String() string {
	if c.RoundID == nil {
		return fmt.Sprintf("latest round on %s", c.Oracle.Hex())
	}
	return fmt.Sprintf("round %s on %s", c.RoundID, c.Oracle.Hex())
}

func (RoundContext) queryContext() {}

// AggregatorContext is an underlying aggregator behind a proxy phase. While the
// phase slot is being looked up Aggregator is still zero and calls go to Proxy.
// With Phase also zero it stands for the proxy's current aggregator.
type AggregatorContext struct {
	Proxy      common.Address
	Aggregator common.Address
	Phase      uint16
}

func (c AggregatorContext) Target() common.Address {
	if c.Aggregator == (common.Address{}) {
		return c.Proxy
	}
	return c.Aggregator
}

func (c AggregatorContext) String() string {
	if c.Aggregator == (common.Address{}) {
		if c.Phase == 0 {
			return fmt.Sprintf("current aggregator of %s", c.Proxy.Hex())
		}
		return fmt.Sprintf("phase %d slot on %s", c.Phase, c.Proxy.Hex())
	}
	return fmt.Sprintf("aggregator %s (phase %d)", c.Aggregator.Hex(), c.Phase)
}

func (AggregatorContext) queryContext() {}
