package sink

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/throughput-monitor/pkg/metrics"
)

// StartStallWatchdog warns, every interval, about networks whose latest block
// has not advanced for longer than maxStall. It returns when ctx is done.
func StartStallWatchdog(
	ctx context.Context,
	log *zap.SugaredLogger,
	board *Board,
	m *metrics.Metrics,
	interval, maxStall time.Duration,
) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, s := range board.Stalled(now, maxStall) {
				m.IncStall(s.Network)
				log.Warnw("network stalled",
					"network", s.Network,
					"latestBlock", s.LatestBlock,
					"since", s.Since.Round(time.Second))
			}
		}
	}
}
