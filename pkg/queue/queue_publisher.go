package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

// Msg represents a queue message.
//
// Topic identifies the destination topic.
// Key is used for partitioning when supported by the backend.
// Value contains the message payload.
// Headers contains additional metadata.
type Msg struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type QueuePublisher interface {
	// Publish publishes a message to the underlying queue.
	//
	// Implementations may block until delivery is confirmed or fail early
	// depending on the underlying system.
	Publish(ctx context.Context, message Msg) error

	// Close stops the publisher and releases all resources.
	//
	// Implementations may block while flushing in-flight messages. Canceling
	// the context may result in message loss.
	Close(ctx context.Context)
}

// Header names set on snapshot messages.
const (
	HeaderNetwork     = "network"
	HeaderLatestBlock = "latest-block"
)

// SnapshotMsg encodes snap as JSON keyed by its network label, so all
// snapshots of one network land on the same partition in order.
func SnapshotMsg(topic string, snap slidingwindow.Snapshot) (Msg, error) {
	value, err := json.Marshal(snap)
	if err != nil {
		return Msg{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return Msg{
		Topic: topic,
		Key:   []byte(snap.Network),
		Value: value,
		Headers: map[string]string{
			HeaderNetwork:     snap.Network,
			HeaderLatestBlock: strconv.FormatUint(snap.LatestBlock, 10),
		},
	}, nil
}
