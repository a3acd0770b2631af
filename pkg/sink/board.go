package sink

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

// TotalLabel names the aggregate row.
const TotalLabel = "Total"

type entry struct {
	snap       slidingwindow.Snapshot
	seen       bool
	advancedAt time.Time
}

// Board keeps the latest snapshot of every network. It is safe for
// concurrent use.
type Board struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	now     func() time.Time
}

// NewBoard returns a board listing labels in order before any snapshot arrives.
func NewBoard(labels []string) *Board {
	b := &Board{
		entries: make(map[string]*entry, len(labels)),
		now:     time.Now,
	}
	start := b.now()
	for _, l := range labels {
		if _, ok := b.entries[l]; ok {
			continue
		}
		b.order = append(b.order, l)
		b.entries[l] = &entry{snap: slidingwindow.Snapshot{Network: l}, advancedAt: start}
	}
	return b
}

// Update records snap as the latest for its network.
func (b *Board) Update(snap slidingwindow.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	e, ok := b.entries[snap.Network]
	if !ok {
		e = &entry{advancedAt: now}
		b.order = append(b.order, snap.Network)
		b.entries[snap.Network] = e
	}
	if !e.seen || snap.LatestBlock > e.snap.LatestBlock {
		e.advancedAt = now
	}
	e.snap = snap
	e.seen = true
}

// Rows returns the latest snapshots, highest TxPerSecond first. Ties keep
// configuration order.
func (b *Board) Rows() []slidingwindow.Snapshot {
	b.mu.RLock()
	rows := make([]slidingwindow.Snapshot, 0, len(b.order))
	for _, l := range b.order {
		rows = append(rows, b.entries[l].snap)
	}
	b.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TxPerSecond > rows[j].TxPerSecond })
	return rows
}

// Totals sums the rates of all networks.
func (b *Board) Totals() slidingwindow.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := slidingwindow.Snapshot{Network: TotalLabel}
	for _, e := range b.entries {
		total.GasPerSecond += e.snap.GasPerSecond
		total.TxPerSecond += e.snap.TxPerSecond
		total.BytesPerSecond += e.snap.BytesPerSecond
	}
	return total
}

// Stall describes a network whose latest block has not advanced.
type Stall struct {
	Network     string
	LatestBlock uint64
	Since       time.Duration
}

// Stalled returns the networks whose latest block has not advanced for
// longer than maxStall, in configuration order.
func (b *Board) Stalled(now time.Time, maxStall time.Duration) []Stall {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var stalls []Stall
	for _, l := range b.order {
		e := b.entries[l]
		if since := now.Sub(e.advancedAt); since > maxStall {
			stalls = append(stalls, Stall{Network: l, LatestBlock: e.snap.LatestBlock, Since: since})
		}
	}
	return stalls
}

type boardResponse struct {
	Networks []slidingwindow.Snapshot `json:"networks"`
	Total    slidingwindow.Snapshot   `json:"total"`
}

// ServeHTTP writes the rows and totals as JSON.
func (b *Board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(boardResponse{Networks: b.Rows(), Total: b.Totals()})
}
