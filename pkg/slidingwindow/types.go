package slidingwindow

// BlockRecord holds the figures of a single block retained by the window.
type BlockRecord struct {
	Number    uint64
	GasUsed   uint64
	Size      *uint64 // nil when the node did not report a size
	Timestamp uint64  // chain-reported, seconds since epoch
	TxCount   uint64
}

// Totals are the running sums over every record currently in the window.
type Totals struct {
	Gas   uint64
	Tx    uint64
	Bytes uint64
}

// Snapshot is a point-in-time rate estimate for one network.
type Snapshot struct {
	Network        string  `json:"network"`
	LatestBlock    uint64  `json:"latestBlock"`
	GasPerSecond   float64 `json:"gasPerSecond"`
	TxPerSecond    float64 `json:"txPerSecond"`
	BytesPerSecond float64 `json:"bytesPerSecond"`
}

func (r BlockRecord) bytes() uint64 {
	if r.Size == nil {
		return 0
	}
	return *r.Size
}
