package chainclient

import (
	"context"

	"github.com/ava-labs/throughput-monitor/internal/types"
)

// ChainClient is the RPC capability a streamer polls.
type ChainClient interface {
	// BlockNumber returns the current head height.
	BlockNumber(ctx context.Context) (uint64, error)
	// BlockByNumber returns the block at height with transaction hashes only.
	// It returns a nil block and nil error when the node does not know the height.
	BlockByNumber(ctx context.Context, height uint64) (*types.Block, error)
}
