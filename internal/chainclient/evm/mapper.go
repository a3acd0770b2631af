package evm

import (
	"bytes"
	"encoding/json"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"

	"github.com/ava-labs/throughput-monitor/internal/types"
)

// rpcBlock mirrors the eth_getBlockByNumber result with hashes-only
// transactions. Header fields are optional so incomplete blocks still decode.
type rpcBlock struct {
	Number       *hexutil.Big      `json:"number"`
	Hash         common.Hash       `json:"hash"`
	GasUsed      *hexutil.Big      `json:"gasUsed"`
	Size         *hexutil.Uint64   `json:"size"`
	Timestamp    hexutil.Uint64    `json:"timestamp"`
	Transactions []json.RawMessage `json:"transactions"`
}

// decodeBlock maps a raw result to an internal block. A null result means the
// node does not know the height and yields a nil block.
func decodeBlock(raw json.RawMessage) (*types.Block, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rb rpcBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, err
	}
	return mapToInternalBlock(&rb), nil
}

func mapToInternalBlock(rb *rpcBlock) *types.Block {
	b := &types.Block{
		Hash:    rb.Hash,
		Time:    uint64(rb.Timestamp),
		TxCount: len(rb.Transactions),
	}
	if rb.Number != nil {
		b.Number = rb.Number.ToInt()
	}
	if rb.GasUsed != nil {
		b.GasUsed = rb.GasUsed.ToInt()
	}
	if rb.Size != nil {
		size := uint64(*rb.Size)
		b.Size = &size
	}
	return b
}
