package outbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Multicaller executes an ordered batch of read-only calls in a single round trip.
// Implementations must return exactly one Result per Call, in call order.
type Multicaller interface {
	Execute(ctx context.Context, calls []Call, blockNumber *big.Int) ([]Result, error)
	Address() common.Address
}

// Call is one entry of a batch. AllowFailure=true lets the call revert without
// aborting its siblings.
type Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result is the outcome of the Call at the same index.
type Result struct {
	Success    bool
	ReturnData []byte
}
