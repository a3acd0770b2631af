package sink

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

const mebi = 1024 * 1024

// WriteReport renders rows and their total as an aligned table.
func WriteReport(w io.Writer, rows []slidingwindow.Snapshot, total slidingwindow.Snapshot) error {
	tw := tabwriter.NewWriter(w, 3, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Network\tBlock\tTPS\tMGas/s\tKB/s")
	for _, r := range rows {
		block := "-"
		if r.LatestBlock > 0 {
			block = humanize.BigComma(new(big.Int).SetUint64(r.LatestBlock))
		}
		writeRow(tw, r.Network, block, r)
	}
	writeRow(tw, total.Network, "", total)
	return tw.Flush()
}

func writeRow(w io.Writer, name, block string, s slidingwindow.Snapshot) {
	fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\n",
		name,
		block,
		s.TxPerSecond,
		s.GasPerSecond/mebi,
		s.BytesPerSecond/1024,
	)
}

// StartReporter writes a report of board to w every interval until ctx is done.
func StartReporter(ctx context.Context, w io.Writer, board *Board, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = WriteReport(w, board.Rows(), board.Totals())
		}
	}
}
