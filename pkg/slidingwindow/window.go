package slidingwindow

import (
	"time"

	"github.com/gammazero/deque"
)

// WindowLength is the span of the window in seconds.
const WindowLength uint64 = 60

// Clock returns the current time in seconds since epoch.
type Clock func() uint64

// WallClock is the default Clock.
func WallClock() uint64 {
	return uint64(time.Now().Unix())
}

// Window is an in-memory rolling window of block records for one network.
type Window struct {
	label   string
	clock   Clock
	records deque.Deque[BlockRecord]
	seen    map[uint64]struct{} // numbers of the records currently in the deque.
	totals  Totals
}

// Option configures a Window.
type Option func(*Window)

// WithClock overrides the wall clock used by Ingest.
func WithClock(c Clock) Option {
	return func(w *Window) {
		w.clock = c
	}
}

// NewWindow creates an empty Window whose snapshots carry the given network label.
func NewWindow(label string, opts ...Option) *Window {
	w := &Window{
		label: label,
		clock: WallClock,
		seen:  make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Label returns the network label reported in snapshots.
func (w *Window) Label() string {
	return w.label
}

// Now returns the current time according to the window clock.
func (w *Window) Now() uint64 {
	return w.clock()
}

// Len returns the number of retained records.
func (w *Window) Len() int {
	return w.records.Len()
}

// Totals returns the running totals.
func (w *Window) Totals() Totals {
	return w.totals
}

// Contains reports whether a block number is currently retained.
func (w *Window) Contains(number uint64) bool {
	_, ok := w.seen[number]
	return ok
}

// Ingest appends a record unless its number is already retained.
// Expired records are evicted first. Returns false for duplicates.
func (w *Window) Ingest(rec BlockRecord) bool {
	if w.Contains(rec.Number) {
		return false
	}
	w.Evict(w.clock())

	w.records.PushBack(rec)
	w.totals.Gas += rec.GasUsed
	w.totals.Tx += rec.TxCount
	w.totals.Bytes += rec.bytes()
	w.seen[rec.Number] = struct{}{}
	return true
}

// Evict drops records from the head while they are at least WindowLength seconds
// older than now. Returns the number of evicted records.
func (w *Window) Evict(now uint64) int {
	var evicted int
	for w.records.Len() > 0 {
		head := w.records.Front()
		if age(now, head.Timestamp) < WindowLength {
			break
		}
		w.records.PopFront()
		w.totals.Gas -= head.GasUsed
		w.totals.Tx -= head.TxCount
		w.totals.Bytes -= head.bytes()
		delete(w.seen, head.Number)
		evicted++
	}
	return evicted
}

// Snapshot evicts expired records and returns the current rates.
// Rates are the running totals divided by the time elapsed since the oldest
// retained record, so they decay while no new blocks arrive.
func (w *Window) Snapshot(now uint64) Snapshot {
	w.Evict(now)

	s := Snapshot{Network: w.label}
	if w.records.Len() == 0 {
		return s
	}
	s.LatestBlock = w.records.Back().Number

	elapsed := age(now, w.records.Front().Timestamp)
	if elapsed == 0 {
		return s
	}
	d := float64(elapsed)
	s.GasPerSecond = float64(w.totals.Gas) / d
	s.TxPerSecond = float64(w.totals.Tx) / d
	s.BytesPerSecond = float64(w.totals.Bytes) / d
	return s
}

// age returns now-ts, or 0 when ts lies in the future.
func age(now, ts uint64) uint64 {
	if ts >= now {
		return 0
	}
	return now - ts
}
