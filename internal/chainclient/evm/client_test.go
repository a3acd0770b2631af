package evm

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/throughput-monitor/pkg/metrics"
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      interface{}   `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeNode answers eth_blockNumber with head and eth_getBlockByNumber from
// blocks keyed by hex height. Unknown heights return null.
type fakeNode struct {
	mu       sync.Mutex
	head     string
	blocks   map[string]json.RawMessage
	failures map[string]*rpcError // by method
	params   [][]interface{}
}

func (f *fakeNode) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		var req rpcRequest
		if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
		if rpcErr, ok := f.failures[req.Method]; ok {
			resp.Error = rpcErr
		} else {
			switch req.Method {
			case methodBlockNumber:
				resp.Result = mustJSONMarshal(t, f.head)
			case methodBlockByNumber:
				f.params = append(f.params, req.Params)
				height, _ := req.Params[0].(string)
				if raw, ok := f.blocks[height]; ok {
					resp.Result = raw
				} else {
					resp.Result = json.RawMessage("null")
				}
			default:
				resp.Error = &rpcError{Code: -32601, Message: "method not found"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustJSONMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func dialFake(t *testing.T, f *fakeNode, kind string, opts ...Option) *Client {
	t.Helper()
	srv := f.serve(t)
	c, err := Dial(t.Context(), kind, srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClient_BlockNumber(t *testing.T) {
	for _, kind := range []string{"", KindCoreth, KindSubnetEVM} {
		t.Run("kind="+kind, func(t *testing.T) {
			c := dialFake(t, &fakeNode{head: "0x3e8"}, kind)

			head, err := c.BlockNumber(t.Context())
			require.NoError(t, err)
			require.Equal(t, uint64(1000), head)
		})
	}
}

func TestClient_BlockNumber_RPCError(t *testing.T) {
	c := dialFake(t, &fakeNode{
		failures: map[string]*rpcError{methodBlockNumber: {Code: -32000, Message: "node syncing"}},
	}, KindCoreth)

	_, err := c.BlockNumber(t.Context())
	require.ErrorContains(t, err, "get block number")
	require.ErrorContains(t, err, "node syncing")
}

func TestClient_BlockByNumber(t *testing.T) {
	f := &fakeNode{blocks: map[string]json.RawMessage{
		"0x64": json.RawMessage(`{
			"number": "0x64",
			"hash": "0x1111111111111111111111111111111111111111111111111111111111111111",
			"gasUsed": "0x5208",
			"size": "0x2bc",
			"timestamp": "0x65f0a0b0",
			"transactions": [
				"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
			]
		}`),
	}}
	c := dialFake(t, f, KindCoreth)

	block, err := c.BlockByNumber(t.Context(), 100)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, uint64(100), block.Number.Uint64())
	require.Equal(t, uint64(21000), block.GasUsed.Uint64())
	require.NotNil(t, block.Size)
	require.Equal(t, uint64(700), *block.Size)
	require.Equal(t, uint64(0x65f0a0b0), block.Time)
	require.Equal(t, 2, block.TxCount)
	require.Equal(t, "0x1111111111111111111111111111111111111111111111111111111111111111", block.Hash.Hex())

	// hashes only
	require.Len(t, f.params, 1)
	require.Equal(t, []interface{}{"0x64", false}, f.params[0])
}

func TestClient_BlockByNumber_OptionalFields(t *testing.T) {
	f := &fakeNode{blocks: map[string]json.RawMessage{
		"0x1": json.RawMessage(`{"gasUsed":"0x10","timestamp":"0x5","transactions":[]}`),
	}}
	c := dialFake(t, f, KindSubnetEVM)

	block, err := c.BlockByNumber(t.Context(), 1)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Nil(t, block.Number)
	require.Nil(t, block.Size)
	require.Equal(t, uint64(16), block.GasUsed.Uint64())
	require.Equal(t, 0, block.TxCount)
}

func TestClient_BlockByNumber_Unknown(t *testing.T) {
	c := dialFake(t, &fakeNode{}, KindCoreth)

	block, err := c.BlockByNumber(t.Context(), 5)
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestClient_BlockByNumber_Malformed(t *testing.T) {
	c := dialFake(t, &fakeNode{blocks: map[string]json.RawMessage{
		"0x2": json.RawMessage(`{"number":"not-hex"}`),
	}}, KindCoreth)

	_, err := c.BlockByNumber(t.Context(), 2)
	require.ErrorContains(t, err, "decode block 2")
}

func TestDial_InvalidKind(t *testing.T) {
	c, err := Dial(t.Context(), "solana", "http://127.0.0.1:1")
	require.Nil(t, c)
	require.ErrorContains(t, err, "invalid client type: solana")
}

func TestClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c := dialFake(t, &fakeNode{
		head:     "0x1",
		failures: map[string]*rpcError{methodBlockByNumber: {Code: -32000, Message: "boom"}},
	}, KindCoreth, WithMetrics(m, "C-Chain"))

	_, err = c.BlockNumber(t.Context())
	require.NoError(t, err)
	_, err = c.BlockByNumber(t.Context(), 1)
	require.Error(t, err)

	expected := `
# HELP throughput_rpc_calls_total Total RPC calls by network, method and status
# TYPE throughput_rpc_calls_total counter
throughput_rpc_calls_total{method="eth_blockNumber",network="C-Chain",status="success"} 1
throughput_rpc_calls_total{method="eth_getBlockByNumber",network="C-Chain",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "throughput_rpc_calls_total"))
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(`
# HELP throughput_rpc_in_flight Number of RPC calls currently in progress
# TYPE throughput_rpc_in_flight gauge
throughput_rpc_in_flight 0
`), "throughput_rpc_in_flight"))
}

func TestDecodeBlock_Null(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null")} {
		block, err := decodeBlock(raw)
		require.NoError(t, err)
		require.Nil(t, block)
	}
}
