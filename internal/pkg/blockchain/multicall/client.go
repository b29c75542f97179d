package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archon-research/feedquery/internal/pkg/blockchain/abis"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

const tracerName = "github.com/archon-research/feedquery/multicall"

// ErrEmptyBatch is returned when Execute is called without calls. Nothing is sent.
var ErrEmptyBatch = errors.New("empty multicall batch")

// Compile-time check that Client implements outbound.Multicaller.
var _ outbound.Multicaller = (*Client)(nil)

// Client batches calls through the Multicall3 aggregate3 function in one eth_call.
type Client struct {
	caller  outbound.ContractCaller
	address common.Address
	abi     *abi.ABI
	tracer  trace.Tracer
}

func NewClient(caller outbound.ContractCaller, multicall3Address common.Address) (*Client, error) {
	if caller == nil {
		return nil, errors.New("contract caller is required")
	}
	if multicall3Address == (common.Address{}) {
		return nil, errors.New("multicall3 address is required")
	}

	multicallABI, err := abis.GetMulticall3ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to load multicall3 ABI: %w", err)
	}

	return &Client{
		caller:  caller,
		address: multicall3Address,
		abi:     multicallABI,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

// Execute sends all calls as one aggregate3 call. The returned results are in
// call order and len(results) == len(calls). A transport failure, or a revert of
// a call with AllowFailure=false, fails the whole batch.
func (c *Client) Execute(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, span := c.tracer.Start(ctx, "multicall.Execute", trace.WithAttributes(
		attribute.String("multicall.address", c.address.Hex()),
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

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("multicall.failed", failed))
	return results, nil
}

func (c *Client) execute(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error) {
	data, err := c.abi.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall: %w", err)
	}

	result, err := c.caller.CallContract(ctx, c.address, data, blockNumber)
	if err != nil {
		if errors.Is(err, outbound.ErrCallReverted) {
			return nil, fmt.Errorf("multicall contract at address=%s block=%s calls=%d reverted, a call without AllowFailure failed: %w",
				c.address.Hex(), blockNumberString(blockNumber), len(calls), err)
		}
		return nil, fmt.Errorf("failed to call multicall contract at address=%s block=%s calls=%d: %w",
			c.address.Hex(), blockNumberString(blockNumber), len(calls), err)
	}

	unpacked, err := c.abi.Unpack("aggregate3", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack multicall response at block=%s: %w",
			blockNumberString(blockNumber), err)
	}

	resultsRaw, ok := unpacked[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected multicall response type %T", unpacked[0])
	}

	if len(resultsRaw) != len(calls) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(resultsRaw), len(calls))
	}

	results := make([]outbound.Result, len(resultsRaw))
	for i, r := range resultsRaw {
		results[i] = outbound.Result{
			Success:    r.Success,
			ReturnData: r.ReturnData,
		}
	}

	return results, nil
}

func blockNumberString(blockNumber *big.Int) string {
	if blockNumber == nil {
		return "latest"
	}
	return blockNumber.String()
}
