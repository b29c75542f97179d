package testutil

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/pkg/blockchain/abis"
)

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// ContractFn answers one contract call. revert=true makes the call revert.
type ContractFn func(data []byte) (ret []byte, revert bool)

// MockNode is an in-process Ethereum node answering eth_call. Contracts are
// registered per (address, 4-byte selector). Calls to the multicall address are
// decoded as aggregate3 and dispatched to the registered contracts, so tests run
// through the real Multicall3 encoding.
type MockNode struct {
	t         *testing.T
	multicall common.Address
	abi       *abi.ABI

	mu        sync.Mutex
	handlers  map[string]ContractFn
	requests  int
	ethCalls  int
	failNext  bool
	lastBatch int
}

// NewMockNode creates a node serving the Multicall3 contract at multicall.
func NewMockNode(t *testing.T, multicall common.Address) *MockNode {
	t.Helper()
	multicallABI, err := abis.GetMulticall3ABI()
	if err != nil {
		t.Fatalf("load multicall3 ABI: %v", err)
	}
	return &MockNode{
		t:         t,
		multicall: multicall,
		abi:       multicallABI,
		handlers:  make(map[string]ContractFn),
	}
}

func handlerKey(target common.Address, selector []byte) string {
	return strings.ToLower(target.Hex()) + ":" + hex.EncodeToString(selector)
}

// Handle registers fn for calls to target starting with selector.
func (n *MockNode) Handle(target common.Address, selector []byte, fn ContractFn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[handlerKey(target, selector)] = fn
}

// Return registers a fixed return value.
func (n *MockNode) Return(target common.Address, selector []byte, ret []byte) {
	n.Handle(target, selector, func([]byte) ([]byte, bool) { return ret, false })
}

// Revert registers a call that always reverts.
func (n *MockNode) Revert(target common.Address, selector []byte) {
	n.Handle(target, selector, func([]byte) ([]byte, bool) { return nil, true })
}

// FailNextRequest makes the next HTTP request fail with a 502.
func (n *MockNode) FailNextRequest() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failNext = true
}

// Requests returns the number of HTTP requests (round trips) served.
func (n *MockNode) Requests() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests
}

// EthCalls returns the number of eth_call invocations served, counting each
// element of a JSON-RPC batch.
func (n *MockNode) EthCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ethCalls
}

// LastBatchSize returns the number of inner calls of the last aggregate3 request.
func (n *MockNode) LastBatchSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastBatch
}

// Start serves the node over HTTP until the test ends.
func (n *MockNode) Start() *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	n.t.Cleanup(srv.Close)
	return srv
}

func (n *MockNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	n.mu.Lock()
	n.requests++
	fail := n.failNext
	n.failNext = false
	n.mu.Unlock()

	if fail {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []JSONRPCRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			WriteRPCError(w, json.RawMessage(`1`), -32700, "parse error")
			return
		}
		responses := make([]json.RawMessage, len(reqs))
		for i, req := range reqs {
			var buf bytes.Buffer
			n.handleRequest(&buf, req)
			responses[i] = bytes.TrimSpace(buf.Bytes())
		}
		_ = json.NewEncoder(w).Encode(responses)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		WriteRPCError(w, json.RawMessage(`1`), -32700, "parse error")
		return
	}
	n.handleRequest(w, req)
}

func (n *MockNode) handleRequest(w io.Writer, req JSONRPCRequest) {
	switch req.Method {
	case "eth_call":
		n.mu.Lock()
		n.ethCalls++
		n.mu.Unlock()

		to, data, err := parseEthCall(req.Params)
		if err != nil {
			WriteRPCError(w, req.ID, -32602, err.Error())
			return
		}
		ret, revert := n.call(to, data)
		if revert {
			WriteRPCErrorData(w, req.ID, 3, "execution reverted", "0x")
			return
		}
		resultJSON, _ := json.Marshal("0x" + hex.EncodeToString(ret))
		WriteRPCResult(w, req.ID, resultJSON)

	case "eth_chainId":
		WriteRPCResult(w, req.ID, json.RawMessage(`"0x1"`))

	default:
		WriteRPCError(w, req.ID, -32601, "method not found: "+req.Method)
	}
}

func (n *MockNode) call(to common.Address, data []byte) ([]byte, bool) {
	if to == n.multicall {
		return n.aggregate3(data)
	}
	return n.dispatch(to, data)
}

func (n *MockNode) dispatch(to common.Address, data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return nil, true
	}
	n.mu.Lock()
	fn, ok := n.handlers[handlerKey(to, data[:4])]
	n.mu.Unlock()
	if !ok {
		// No code / unknown selector behaves like a revert.
		return nil, true
	}
	return fn(data)
}

func (n *MockNode) aggregate3(data []byte) ([]byte, bool) {
	calls, err := unpackAggregate3Calls(n.abi, data)
	if err != nil {
		return nil, true
	}

	n.mu.Lock()
	n.lastBatch = len(calls)
	n.mu.Unlock()

	results := make([]MulticallResult, len(calls))
	for i, c := range calls {
		ret, revert := n.dispatch(c.Target, c.CallData)
		if revert && !c.AllowFailure {
			// Multicall3: "Multicall3: call failed"
			return nil, true
		}
		results[i] = MulticallResult{Success: !revert, ReturnData: ret}
		if revert {
			results[i].ReturnData = []byte{}
		}
	}

	out, err := n.abi.Methods["aggregate3"].Outputs.Pack(results)
	if err != nil {
		n.t.Errorf("packing aggregate3 results: %v", err)
		return nil, true
	}
	return out, false
}

func parseEthCall(params json.RawMessage) (common.Address, []byte, error) {
	var p []json.RawMessage
	if err := json.Unmarshal(params, &p); err != nil || len(p) < 1 {
		return common.Address{}, nil, fmt.Errorf("invalid eth_call params")
	}
	var callObj map[string]any
	if err := json.Unmarshal(p[0], &callObj); err != nil {
		return common.Address{}, nil, fmt.Errorf("invalid call object: %w", err)
	}
	to, _ := callObj["to"].(string)
	// go-ethereum may use "data" or "input" for the calldata field
	dataHex, _ := callObj["input"].(string)
	if dataHex == "" {
		dataHex, _ = callObj["data"].(string)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(dataHex, "0x"))
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("invalid calldata: %w", err)
	}
	return common.HexToAddress(to), data, nil
}

// WriteRPCResult writes a JSON-RPC success response.
func WriteRPCResult(w io.Writer, id, result json.RawMessage) {
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
		"jsonrpc": json.RawMessage(`"2.0"`),
		"id":      id,
		"result":  result,
	})
}

// WriteRPCError writes a JSON-RPC error response.
func WriteRPCError(w io.Writer, id json.RawMessage, code int, message string) {
	errJSON, _ := json.Marshal(map[string]any{"code": code, "message": message})
	writeRPCErrorJSON(w, id, errJSON)
}

// WriteRPCErrorData writes a JSON-RPC error response carrying revert data.
func WriteRPCErrorData(w io.Writer, id json.RawMessage, code int, message, data string) {
	errJSON, _ := json.Marshal(map[string]any{"code": code, "message": message, "data": data})
	writeRPCErrorJSON(w, id, errJSON)
}

func writeRPCErrorJSON(w io.Writer, id json.RawMessage, errJSON []byte) {
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{
		"jsonrpc": json.RawMessage(`"2.0"`),
		"id":      id,
		"error":   json.RawMessage(errJSON),
	})
}
