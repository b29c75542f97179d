package testutil

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/pkg/blockchain/abis"
	"github.com/archon-research/feedquery/internal/ports/outbound"
)

func feedABI(t *testing.T) *abi.ABI {
	t.Helper()
	parsed, err := abis.GetAggregatorV3ABI()
	if err != nil {
		t.Fatalf("loading AggregatorV3 ABI: %v", err)
	}
	return parsed
}

func multicallABI(t *testing.T) *abi.ABI {
	t.Helper()
	parsed, err := abis.GetMulticall3ABI()
	if err != nil {
		t.Fatalf("loading multicall3 ABI: %v", err)
	}
	return parsed
}

func packOutputs(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	data, err := feedABI(t).Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("packing %s: %v", method, err)
	}
	return data
}

// PackLatestRoundData ABI-encodes latestRoundData() return data.
func PackLatestRoundData(t *testing.T, roundID *big.Int, answer *big.Int, startedAt *big.Int, updatedAt *big.Int, answeredInRound *big.Int) []byte {
	t.Helper()
	return packOutputs(t, "latestRoundData", roundID, answer, startedAt, updatedAt, answeredInRound)
}

// PackRound is PackLatestRoundData with small-integer fields; answeredInRound equals roundID.
func PackRound(t *testing.T, roundID *big.Int, answer int64, updatedAt int64) []byte {
	t.Helper()
	return PackLatestRoundData(t, roundID, big.NewInt(answer), big.NewInt(updatedAt-10), big.NewInt(updatedAt), roundID)
}

// PackLatestAnswer ABI-encodes latestAnswer() return data.
func PackLatestAnswer(t *testing.T, answer *big.Int) []byte {
	t.Helper()
	return packOutputs(t, "latestAnswer", answer)
}

// PackDescription ABI-encodes description() return data.
func PackDescription(t *testing.T, description string) []byte {
	t.Helper()
	return packOutputs(t, "description", description)
}

// PackVersion ABI-encodes version() return data.
func PackVersion(t *testing.T, version int64) []byte {
	t.Helper()
	return packOutputs(t, "version", big.NewInt(version))
}

// PackPhaseID ABI-encodes phaseId() return data.
func PackPhaseID(t *testing.T, phase uint16) []byte {
	t.Helper()
	return packOutputs(t, "phaseId", phase)
}

// PackDecimals ABI-encodes decimals() return data.
func PackDecimals(t *testing.T, decimals uint8) []byte {
	t.Helper()
	return packOutputs(t, "decimals", decimals)
}

// PackAddress ABI-encodes an address return value (phaseAggregators, aggregator).
func PackAddress(t *testing.T, addr common.Address) []byte {
	t.Helper()
	return packOutputs(t, "aggregator", addr)
}

// MulticallResult matches the multicall3 aggregate3 output tuple.
type MulticallResult struct {
	Success    bool
	ReturnData []byte
}

// PackMulticallAggregate3 ABI-encodes results as aggregate3 return data.
func PackMulticallAggregate3(t *testing.T, results []MulticallResult) []byte {
	t.Helper()
	data, err := multicallABI(t).Methods["aggregate3"].Outputs.Pack(results)
	if err != nil {
		t.Fatalf("packing aggregate3: %v", err)
	}
	return data
}

// UnpackAggregate3Calls decodes aggregate3 calldata (selector included) back into calls.
func UnpackAggregate3Calls(t *testing.T, data []byte) []outbound.Call {
	t.Helper()
	calls, err := unpackAggregate3Calls(multicallABI(t), data)
	if err != nil {
		t.Fatalf("unpacking aggregate3 calldata: %v", err)
	}
	return calls
}

func unpackAggregate3Calls(parsed *abi.ABI, data []byte) ([]outbound.Call, error) {
	method, err := parsed.MethodById(data)
	if err != nil {
		return nil, err
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	type call3 struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	raw := *abi.ConvertType(values[0], new([]call3)).(*[]call3)
	calls := make([]outbound.Call, len(raw))
	for i, c := range raw {
		calls[i] = outbound.Call{Target: c.Target, AllowFailure: c.AllowFailure, CallData: c.CallData}
	}
	return calls, nil
}
