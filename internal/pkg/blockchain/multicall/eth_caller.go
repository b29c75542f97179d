package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// revertErrorCode is the JSON-RPC error code geth-compatible nodes use for reverts.
const revertErrorCode = 3

// Compile-time check that EthCaller implements outbound.ContractCaller.
var _ outbound.ContractCaller = (*EthCaller)(nil)

// EthCaller sends single eth_calls through an ethclient.
type EthCaller struct {
	client *ethclient.Client
}

func NewEthCaller(client *ethclient.Client) *EthCaller {
	return &EthCaller{client: client}
}

// CallContract executes one read-only call. Reverts map to outbound.ErrCallReverted,
// everything else to *outbound.TransportError.
func (c *EthCaller) CallContract(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error) {
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, blockNumber)
	if err != nil {
		return nil, classifyCallError(target, err)
	}
	return out, nil
}

func classifyCallError(target common.Address, err error) error {
	if reason, ok := revertReason(err); ok {
		if reason == "" {
			return fmt.Errorf("call to %s: %w", target.Hex(), outbound.ErrCallReverted)
		}
		return fmt.Errorf("call to %s: %w: %s", target.Hex(), outbound.ErrCallReverted, reason)
	}
	return &outbound.TransportError{Op: "eth_call", Target: target, Err: err}
}

// revertReason reports whether err is an execution revert and decodes its
// Error(string) reason when present.
func revertReason(err error) (string, bool) {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return "", false
	}
	if rpcErr.ErrorCode() != revertErrorCode && !strings.Contains(strings.ToLower(rpcErr.Error()), "revert") {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if raw, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason, true
				}
			}
		}
	}
	return "", true
}
