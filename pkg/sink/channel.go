package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

// DefaultCapacity is the snapshot buffer size shared by all streamers.
const DefaultCapacity = 8

// ErrClosed is returned by Publish once the receiving side is gone.
var ErrClosed = errors.New("sink closed")

// Channel is a bounded many-producer, single-consumer snapshot queue.
// Publish blocks while the buffer is full.
type Channel struct {
	ch     chan slidingwindow.Snapshot
	done   chan struct{}
	closer sync.Once
}

// NewChannel returns a Channel buffering up to capacity snapshots. A
// non-positive capacity means DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		ch:   make(chan slidingwindow.Snapshot, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues snap, waiting for room. It returns ErrClosed after Close
// and ctx.Err() if ctx ends first.
func (c *Channel) Publish(ctx context.Context, snap slidingwindow.Snapshot) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.ch <- snap:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the receive side.
func (c *Channel) C() <-chan slidingwindow.Snapshot {
	return c.ch
}

// Done is closed by Close.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close marks the receiver as gone and unblocks pending publishers.
// The data channel stays open so concurrent publishers never panic.
func (c *Channel) Close() {
	c.closer.Do(func() { close(c.done) })
}

// Len returns the number of buffered snapshots.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Cap returns the buffer capacity.
func (c *Channel) Cap() int {
	return cap(c.ch)
}
