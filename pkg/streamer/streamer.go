package streamer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/throughput-monitor/internal/chainclient"
	"github.com/ava-labs/throughput-monitor/internal/types"
	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

const (
	// DefaultPollInterval is the pause between two ticks.
	DefaultPollInterval = 750 * time.Millisecond
	// DefaultCatchUpLimit bounds how many heights a single tick fetches.
	DefaultCatchUpLimit uint64 = 10
)

var errMalformed = errors.New("malformed block")

// Publisher receives every snapshot the streamer produces.
// An error stops the streamer.
type Publisher interface {
	Publish(ctx context.Context, snap slidingwindow.Snapshot) error
}

// Streamer polls one network, feeds its window and publishes a snapshot per tick.
type Streamer struct {
	log     *zap.SugaredLogger
	client  chainclient.ChainClient
	window  *slidingwindow.Window
	pub     Publisher
	metrics *metrics.Metrics // nil if metrics disabled

	pollInterval time.Duration
	catchUpLimit uint64
}

// Option configures the Streamer.
type Option func(*Streamer)

// WithPollInterval sets the pause between ticks.
func WithPollInterval(d time.Duration) Option {
	return func(s *Streamer) {
		s.pollInterval = d
	}
}

// WithCatchUpLimit sets the maximum number of heights fetched per tick.
func WithCatchUpLimit(n uint64) Option {
	return func(s *Streamer) {
		s.catchUpLimit = n
	}
}

// WithMetrics enables metrics collection for the streamer.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Streamer) {
		s.metrics = m
	}
}

// New creates a Streamer and returns an error if arguments are invalid.
func New(
	log *zap.SugaredLogger,
	client chainclient.ChainClient,
	window *slidingwindow.Window,
	pub Publisher,
	opts ...Option,
) (*Streamer, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if client == nil {
		return nil, errors.New("invalid client: must not be nil")
	}
	if window == nil {
		return nil, errors.New("invalid window: must not be nil")
	}
	if pub == nil {
		return nil, errors.New("invalid publisher: must not be nil")
	}

	s := &Streamer{
		log:          log.With("network", window.Label()),
		client:       client,
		window:       window,
		pub:          pub,
		pollInterval: DefaultPollInterval,
		catchUpLimit: DefaultCatchUpLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pollInterval <= 0 {
		return nil, errors.New("invalid poll interval: must be greater than 0")
	}
	if s.catchUpLimit == 0 {
		return nil, errors.New("invalid catch-up limit: must be greater than 0")
	}
	return s, nil
}

// Run bootstraps the window from the recent heights and then ticks until ctx
// is done or the publisher fails.
func (s *Streamer) Run(ctx context.Context) error {
	cursor := s.FetchBatch(ctx, nil)

	for {
		cursor = s.FetchBatch(ctx, cursor)

		// Ingest evicts against the same clock.
		snap := s.window.Snapshot(s.window.Now())
		s.metrics.ObserveSnapshot(snap.Network, snap.LatestBlock, snap.GasPerSecond, snap.TxPerSecond, snap.BytesPerSecond)
		if cursor != nil {
			s.metrics.RecordTick(snap.Network, *cursor, s.window.Len())
		}

		start := time.Now()
		if err := s.pub.Publish(ctx, snap); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("publish snapshot: %w", err)
		}
		s.metrics.ObservePublishWait(snap.Network, time.Since(start).Seconds())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// FetchBatch reads the chain head and ingests every height after prev, at most
// catch-up limit of them. With a nil prev only the most recent heights are
// fetched. It returns the head, or prev unchanged if the head could not be read.
func (s *Streamer) FetchBatch(ctx context.Context, prev *uint64) *uint64 {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		s.log.Debugw("failed to read chain head", "error", err)
		s.metrics.IncHeadError(s.window.Label())
		return prev
	}

	from, to, ok := fetchRange(prev, head, s.catchUpLimit)
	if ok {
		records := s.fetchRecords(ctx, from, to)
		var ingested int
		for _, rec := range records {
			if !s.window.Ingest(rec) {
				s.metrics.IncBlockDropped(s.window.Label(), metrics.DropDuplicate)
				continue
			}
			ingested++
		}
		s.metrics.AddBlocksIngested(s.window.Label(), ingested)
		s.log.Debugw("ingested blocks", "from", from, "to", to, "ingested", ingested)
	}

	return &head
}

// fetchRange returns the inclusive heights to fetch after prev up to head.
func fetchRange(prev *uint64, head, limit uint64) (from, to uint64, ok bool) {
	var last uint64
	if prev != nil {
		last = *prev
	}
	if head > limit {
		last = max(last, head-limit)
	}
	if last >= head {
		return 0, 0, false
	}
	return last + 1, head, true
}

// fetchRecords fetches [from, to] concurrently and returns the usable records
// ordered by number. Heights that fail or do not decode are dropped.
func (s *Streamer) fetchRecords(ctx context.Context, from, to uint64) []slidingwindow.BlockRecord {
	results := make([]*slidingwindow.BlockRecord, to-from+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(min(s.catchUpLimit, uint64(len(results)))))
	for idx := range results {
		h := from + uint64(idx)
		g.Go(func() error {
			block, err := s.client.BlockByNumber(gctx, h)
			if err != nil {
				s.log.Debugw("failed to fetch block", "height", h, "error", err)
				s.metrics.IncBlockDropped(s.window.Label(), metrics.DropFetchError)
				return nil
			}
			if block == nil {
				s.metrics.IncBlockDropped(s.window.Label(), metrics.DropNotFound)
				return nil
			}
			rec, err := toRecord(block)
			if err != nil {
				s.log.Debugw("dropping block", "height", h, "error", err)
				s.metrics.IncBlockDropped(s.window.Label(), metrics.DropMalformed)
				return nil
			}
			results[idx] = &rec
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()

	records := make([]slidingwindow.BlockRecord, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Number < records[j].Number })
	return records
}

// toRecord converts a fetched block. Blocks without a number, or whose gas
// does not fit below math.MaxUint64, are rejected.
func toRecord(b *types.Block) (slidingwindow.BlockRecord, error) {
	if b.Number == nil || !b.Number.IsUint64() {
		return slidingwindow.BlockRecord{}, fmt.Errorf("%w: missing number", errMalformed)
	}
	if b.GasUsed == nil || !b.GasUsed.IsUint64() || b.GasUsed.Uint64() == math.MaxUint64 {
		return slidingwindow.BlockRecord{}, fmt.Errorf("%w: gas used out of range", errMalformed)
	}
	if b.TxCount < 0 {
		return slidingwindow.BlockRecord{}, fmt.Errorf("%w: negative tx count", errMalformed)
	}
	return slidingwindow.BlockRecord{
		Number:    b.Number.Uint64(),
		GasUsed:   b.GasUsed.Uint64(),
		Size:      b.Size,
		Timestamp: b.Time,
		TxCount:   uint64(b.TxCount),
	}, nil
}
