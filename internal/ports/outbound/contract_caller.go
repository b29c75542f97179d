package outbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller performs a single eth_call against target.
// A nil blockNumber means the latest block.
//
// Reverts are reported as ErrCallReverted; any other failure is a *TransportError.
type ContractCaller interface {
	CallContract(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error)
}
