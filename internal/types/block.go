package types

import (
	"math/big"

	"github.com/ava-labs/libevm/common"
)

// Block is the subset of an EVM block the monitor consumes. Fields the node
// omitted stay nil so callers can decide whether the block is usable.
type Block struct {
	Number  *big.Int    `json:"number"`
	Hash    common.Hash `json:"hash"`
	GasUsed *big.Int    `json:"gasUsed"`
	Size    *uint64     `json:"size"`
	Time    uint64      `json:"time"`
	TxCount int         `json:"txCount"`
}
