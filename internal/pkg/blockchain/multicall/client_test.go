package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
	"github.com/archon-research/feedquery/internal/ports/outbound"
	"github.com/archon-research/feedquery/internal/testutil"
)

var testMulticall3 = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

type fixture struct {
	node   *testutil.MockNode
	rpc    *rpc.Client
	codec  *codec.Codec
	client *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node := testutil.NewMockNode(t, testMulticall3)
	srv := node.Start()

	rpcClient, err := rpc.DialHTTP(srv.URL)
	if err != nil {
		t.Fatalf("dial mock node: %v", err)
	}
	t.Cleanup(rpcClient.Close)

	client, err := NewClient(NewEthCaller(ethclient.NewClient(rpcClient)), testMulticall3)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c, err := codec.New()
	if err != nil {
		t.Fatalf("codec.New() error = %v", err)
	}
	return &fixture{node: node, rpc: rpcClient, codec: c, client: client}
}

func feedAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

// register installs n feeds answering latestAnswer() with their index, or
// reverting where fail[i] is set.
func (f *fixture) register(t *testing.T, fail []bool) []outbound.Call {
	t.Helper()
	selector := f.codec.Selector(codec.LatestAnswer)
	calls := make([]outbound.Call, len(fail))
	for i, revert := range fail {
		addr := feedAddress(i)
		if revert {
			f.node.Revert(addr, selector)
		} else {
			f.node.Return(addr, selector, testutil.PackLatestAnswer(t, big.NewInt(int64(i))))
		}
		calls[i] = outbound.Call{Target: addr, AllowFailure: true, CallData: selector}
	}
	return calls
}

func TestNewClient(t *testing.T) {
	caller := &testutil.MockCaller{}

	tests := []struct {
		name    string
		caller  outbound.ContractCaller
		address common.Address
		wantErr bool
	}{
		{"valid", caller, testMulticall3, false},
		{"nil caller", nil, testMulticall3, true},
		{"zero address", caller, common.Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.caller, tt.address)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && client.Address() != tt.address {
				t.Errorf("Address() = %s, want %s", client.Address().Hex(), tt.address.Hex())
			}
		})
	}
}

func TestClient_Execute_PreservesOrder(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 25; iter++ {
		n := 1 + rng.Intn(12)
		fail := make([]bool, n)
		for i := range fail {
			fail[i] = rng.Intn(3) == 0
		}

		t.Run(fmt.Sprintf("iteration %d n=%d", iter, n), func(t *testing.T) {
			calls := f.register(t, fail)
			before := f.node.Requests()

			results, err := f.client.Execute(context.Background(), calls, nil)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got := f.node.Requests() - before; got != 1 {
				t.Errorf("round trips = %d, want 1", got)
			}
			if f.node.LastBatchSize() != n {
				t.Errorf("batch size = %d, want %d", f.node.LastBatchSize(), n)
			}
			if len(results) != n {
				t.Fatalf("len(results) = %d, want %d", len(results), n)
			}

			for i, r := range results {
				if r.Success == fail[i] {
					t.Errorf("results[%d].Success = %v, want %v", i, r.Success, !fail[i])
					continue
				}
				if !r.Success {
					continue
				}
				answer, err := f.codec.DecodeLatestAnswer(r.ReturnData)
				if err != nil {
					t.Fatalf("results[%d]: decode error = %v", i, err)
				}
				if answer.Int64() != int64(i) {
					t.Errorf("results[%d] answer = %s, want %d", i, answer, i)
				}
			}
		})
	}
}

func TestClient_Execute_AllFail(t *testing.T) {
	f := newFixture(t)
	calls := f.register(t, []bool{true, true, true, true})

	results, err := f.client.Execute(context.Background(), calls, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != len(calls) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(calls))
	}
	for i, r := range results {
		if r.Success {
			t.Errorf("results[%d].Success = true, want false", i)
		}
	}
}

func TestClient_Execute_EmptyBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Execute(context.Background(), nil, nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("Execute() error = %v, want ErrEmptyBatch", err)
	}
	if f.node.Requests() != 0 {
		t.Errorf("requests = %d, want 0", f.node.Requests())
	}
}

func TestClient_Execute_StrictCallRevertFailsBatch(t *testing.T) {
	f := newFixture(t)
	calls := f.register(t, []bool{false, true})
	calls[1].AllowFailure = false

	_, err := f.client.Execute(context.Background(), calls, nil)
	if !errors.Is(err, outbound.ErrCallReverted) {
		t.Fatalf("Execute() error = %v, want ErrCallReverted", err)
	}
}

func TestClient_Execute_TransportFailure(t *testing.T) {
	f := newFixture(t)
	calls := f.register(t, []bool{false, false})
	f.node.FailNextRequest()

	results, err := f.client.Execute(context.Background(), calls, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
	var transportErr *outbound.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error %v is not a *TransportError", err)
	}
	if transportErr.Target != testMulticall3 {
		t.Errorf("TransportError.Target = %s, want %s", transportErr.Target.Hex(), testMulticall3.Hex())
	}
}

func TestClient_Execute_MalformedEnvelope(t *testing.T) {
	calls := []outbound.Call{
		{Target: feedAddress(0), AllowFailure: true, CallData: []byte{0x50, 0xd2, 0x5b, 0xcd}},
		{Target: feedAddress(1), AllowFailure: true, CallData: []byte{0x50, 0xd2, 0x5b, 0xcd}},
	}

	tests := []struct {
		name    string
		respond func(t *testing.T) []byte
		wantErr string
	}{
		{
			name: "fewer results than calls",
			respond: func(t *testing.T) []byte {
				return testutil.PackMulticallAggregate3(t, []testutil.MulticallResult{{Success: true, ReturnData: []byte{}}})
			},
			wantErr: "returned 1 results for 2 calls",
		},
		{
			name: "garbage",
			respond: func(t *testing.T) []byte {
				return []byte{0xde, 0xad}
			},
			wantErr: "failed to unpack multicall response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.respond(t)
			caller := &testutil.MockCaller{
				CallFn: func(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error) {
					return payload, nil
				},
			}
			client, err := NewClient(caller, testMulticall3)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			_, err = client.Execute(context.Background(), calls, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Execute_PassesCallsThrough(t *testing.T) {
	var sent []outbound.Call
	caller := &testutil.MockCaller{
		CallFn: func(ctx context.Context, target common.Address, data []byte, blockNumber *big.Int) ([]byte, error) {
			sent = testutil.UnpackAggregate3Calls(t, data)
			results := make([]testutil.MulticallResult, len(sent))
			for i := range results {
				results[i] = testutil.MulticallResult{Success: true, ReturnData: []byte{}}
			}
			return testutil.PackMulticallAggregate3(t, results), nil
		},
	}
	client, err := NewClient(caller, testMulticall3)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	calls := []outbound.Call{
		{Target: feedAddress(7), AllowFailure: true, CallData: []byte{0xfe, 0xaf, 0x96, 0x8c}},
		{Target: feedAddress(3), AllowFailure: false, CallData: []byte{0x72, 0x84, 0xe4, 0x16}},
	}
	if _, err := client.Execute(context.Background(), calls, big.NewInt(19_000_000)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if caller.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", caller.CallCount)
	}
	if caller.Targets[0] != testMulticall3 {
		t.Errorf("target = %s, want multicall3", caller.Targets[0].Hex())
	}
	if len(sent) != len(calls) {
		t.Fatalf("sent %d calls, want %d", len(sent), len(calls))
	}
	for i := range calls {
		if sent[i].Target != calls[i].Target || sent[i].AllowFailure != calls[i].AllowFailure {
			t.Errorf("sent[%d] = %+v, want %+v", i, sent[i], calls[i])
		}
	}
}

func TestBlockNumberString(t *testing.T) {
	if got := blockNumberString(nil); got != "latest" {
		t.Errorf("blockNumberString(nil) = %q, want latest", got)
	}
	if got := blockNumberString(big.NewInt(12345)); got != "12345" {
		t.Errorf("blockNumberString(12345) = %q, want 12345", got)
	}
}
