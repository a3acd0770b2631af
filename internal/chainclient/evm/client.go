package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ava-labs/libevm/common/hexutil"

	"github.com/ava-labs/throughput-monitor/internal/chainclient"
	"github.com/ava-labs/throughput-monitor/internal/types"
	"github.com/ava-labs/throughput-monitor/pkg/metrics"

	corethrpc "github.com/ava-labs/coreth/rpc"
	subnetrpc "github.com/ava-labs/subnet-evm/rpc"
)

// Supported RPC client flavours.
const (
	KindCoreth    = "coreth"
	KindSubnetEVM = "subnet-evm"
)

const (
	methodBlockNumber   = "eth_blockNumber"
	methodBlockByNumber = "eth_getBlockByNumber"
)

// caller is the JSON-RPC surface shared by the coreth and subnet-evm clients.
type caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Client polls a single EVM endpoint over JSON-RPC.
type Client struct {
	rpc     caller
	network string
	metrics *metrics.Metrics // nil if metrics disabled
}

var _ chainclient.ChainClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithMetrics enables metrics collection for the client, labelled by network.
func WithMetrics(m *metrics.Metrics, network string) Option {
	return func(c *Client) {
		c.metrics = m
		c.network = network
	}
}

// Dial connects to url using the given client kind. An empty kind means coreth.
func Dial(ctx context.Context, kind, url string, opts ...Option) (*Client, error) {
	var (
		rpc caller
		err error
	)
	switch kind {
	case "", KindCoreth:
		rpc, err = corethrpc.DialContext(ctx, url)
	case KindSubnetEVM:
		rpc, err = subnetrpc.DialContext(ctx, url)
	default:
		return nil, fmt.Errorf("invalid client type: %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", kind, err)
	}
	return newClient(rpc, opts...), nil
}

func newClient(rpc caller, opts ...Option) *Client {
	c := &Client{rpc: rpc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BlockNumber returns the current head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head hexutil.Uint64
	if err := c.call(ctx, &head, methodBlockNumber); err != nil {
		return 0, fmt.Errorf("get block number: %w", err)
	}
	return uint64(head), nil
}

// BlockByNumber fetches a block with transaction hashes only.
func (c *Client) BlockByNumber(ctx context.Context, height uint64) (*types.Block, error) {
	var raw json.RawMessage
	if err := c.call(ctx, &raw, methodBlockByNumber, hexutil.EncodeUint64(height), false); err != nil {
		return nil, fmt.Errorf("get block by number %d: %w", height, err)
	}
	block, err := decodeBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("decode block %d: %w", height, err)
	}
	return block, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	start := time.Now()

	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	err := c.rpc.CallContext(ctx, result, method, args...)
	c.metrics.RecordRPCCall(c.network, method, err, time.Since(start).Seconds())
	return err
}
