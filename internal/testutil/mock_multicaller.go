package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/ports/outbound"
)

// MockMulticaller implements outbound.Multicaller for testing.
// Every Execute call is recorded in Batches.
type MockMulticaller struct {
	mu        sync.Mutex
	ExecuteFn func(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error)
	CallCount int
	Batches   [][]outbound.Call
	Addr      common.Address
}

func NewMockMulticaller() *MockMulticaller {
	return &MockMulticaller{
		Addr: common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
	}
}

func (m *MockMulticaller) Execute(ctx context.Context, calls []outbound.Call, blockNumber *big.Int) ([]outbound.Result, error) {
	m.mu.Lock()
	m.CallCount++
	m.Batches = append(m.Batches, append([]outbound.Call(nil), calls...))
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, calls, blockNumber)
	}
	return nil, errors.New("Execute not mocked")
}

func (m *MockMulticaller) Address() common.Address {
	return m.Addr
}

// MockCaller implements outbound.ContractCaller for testing.
type MockCaller struct {
	mu        sync.Mutex
	CallFn    func(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error)
	CallCount int
	Targets   []common.Address
}

func (m *MockCaller) CallContract(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	m.CallCount++
	m.Targets = append(m.Targets, target)
	m.mu.Unlock()
	if m.CallFn != nil {
		return m.CallFn(ctx, target, data, blockNumber)
	}
	return nil, errors.New("CallContract not mocked")
}
