package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/queue"
	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

// Consumer drains a Channel into a Board and, optionally, a message queue.
type Consumer struct {
	log     *zap.SugaredLogger
	ch      *Channel
	board   *Board
	metrics *metrics.Metrics // nil if metrics disabled

	queue queue.QueuePublisher // nil if fan-out disabled
	topic string
}

// ConsumerOption configures the Consumer.
type ConsumerOption func(*Consumer)

// WithQueue forwards every snapshot to pub on topic.
func WithQueue(pub queue.QueuePublisher, topic string) ConsumerOption {
	return func(c *Consumer) {
		c.queue = pub
		c.topic = topic
	}
}

// WithConsumerMetrics enables metrics collection for queue forwarding.
func WithConsumerMetrics(m *metrics.Metrics) ConsumerOption {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// NewConsumer creates a Consumer reading from ch.
func NewConsumer(log *zap.SugaredLogger, ch *Channel, board *Board, opts ...ConsumerOption) (*Consumer, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if ch == nil {
		return nil, errors.New("invalid channel: must not be nil")
	}
	if board == nil {
		return nil, errors.New("invalid board: must not be nil")
	}
	c := &Consumer{log: log, ch: ch, board: board}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run consumes snapshots until ctx is done. On return the channel is closed,
// so streamers still publishing get ErrClosed.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.ch.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-c.ch.C():
			c.handle(ctx, snap)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, snap slidingwindow.Snapshot) {
	c.board.Update(snap)

	if c.queue == nil {
		return
	}
	msg, err := queue.SnapshotMsg(c.topic, snap)
	if err == nil {
		err = c.queue.Publish(ctx, msg)
	}
	c.metrics.RecordQueuePublish(err)
	if err != nil && ctx.Err() == nil {
		c.log.Warnw("failed to forward snapshot", "network", snap.Network, "error", err)
	}
}
