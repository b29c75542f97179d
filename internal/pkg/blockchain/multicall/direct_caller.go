package multicall

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// Compile-time check that DirectCaller implements outbound.Multicaller.
var _ outbound.Multicaller = (*DirectCaller)(nil)

// DirectCaller implements outbound.Multicaller by making individual eth_call
// per target using JSON-RPC batching instead of the Multicall3 contract. This
// serves chains where Multicall3 is not deployed and contracts that gate reads
// on msg.sender being address(0) (the default for eth_call).
//
// All calls are sent in a single HTTP request via rpc.BatchCallContext, so a
// batch still costs one round trip.
type DirectCaller struct {
	rpcClient *rpc.Client
	tracer    trace.Tracer
}

// NewDirectCaller creates a new DirectCaller from an rpc client.
func NewDirectCaller(rpcClient *rpc.Client) *DirectCaller {
	return &DirectCaller{rpcClient: rpcClient, tracer: otel.Tracer(tracerName)}
}

// ethCallArg mirrors go-ethereum's internal callMsg JSON encoding for eth_call.
type ethCallArg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Execute sends all calls in a single JSON-RPC batch request.
func (c *DirectCaller) Execute(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, span := c.tracer.Start(ctx, "multicall.DirectExecute", trace.WithAttributes(
		attribute.Int("multicall.calls", len(calls)),
		attribute.String("multicall.block", blockNumberString(blockNumber)),
	))
	defer span.End()

	results, err := c.execute(ctx, calls, blockNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

func (c *DirectCaller) execute(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error) {
	blockArg := toBlockNumArg(blockNumber)

	elems := make([]rpc.BatchElem, len(calls))
	hexResults := make([]hexutil.Bytes, len(calls))

	for i, call := range calls {
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				ethCallArg{
					To:   call.Target.Hex(),
					Data: "0x" + hex.EncodeToString(call.CallData),
				},
				blockArg,
			},
			Result: &hexResults[i],
		}
	}

	if err := c.rpcClient.BatchCallContext(ctx, elems); err != nil {
		return nil, &outbound.TransportError{Op: "batch eth_call", Err: err}
	}

	results := make([]outbound.Result, len(calls))
	for i, elem := range elems {
		if elem.Error != nil {
			classified := classifyCallError(calls[i].Target, elem.Error)
			if _, reverted := revertReason(elem.Error); !reverted {
				return nil, classified
			}
			if !calls[i].AllowFailure {
				return nil, fmt.Errorf("direct call %d failed: %w", i, classified)
			}
			results[i] = outbound.Result{Success: false}
			continue
		}
		results[i] = outbound.Result{
			Success:    true,
			ReturnData: hexResults[i],
		}
	}

	return results, nil
}

// Address returns a zero address since DirectCaller doesn't use a contract.
func (c *DirectCaller) Address() common.Address {
	return common.Address{}
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	if number.Sign() >= 0 {
		return hexutil.EncodeBig(number)
	}
	return "latest"
}
