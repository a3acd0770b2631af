package sink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
)

func TestNewChannel_Capacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewChannel(0).Cap())
	require.Equal(t, DefaultCapacity, NewChannel(-3).Cap())
	require.Equal(t, 2, NewChannel(2).Cap())
}

func TestChannel_PublishAndReceive(t *testing.T) {
	c := NewChannel(2)
	require.NoError(t, c.Publish(t.Context(), slidingwindow.Snapshot{Network: "a", LatestBlock: 1}))
	require.NoError(t, c.Publish(t.Context(), slidingwindow.Snapshot{Network: "b", LatestBlock: 2}))
	require.Equal(t, 2, c.Len())

	require.Equal(t, "a", (<-c.C()).Network)
	require.Equal(t, "b", (<-c.C()).Network)
}

func TestChannel_BlocksWhenFull(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Publish(t.Context(), slidingwindow.Snapshot{Network: "a"}))

	published := make(chan error, 1)
	go func() {
		published <- c.Publish(t.Context(), slidingwindow.Snapshot{Network: "b"})
	}()

	select {
	case <-published:
		t.Fatal("publish should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	<-c.C()
	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish did not resume after a receive")
	}
	require.Equal(t, "b", (<-c.C()).Network)
}

func TestChannel_ContextCanceled(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Publish(t.Context(), slidingwindow.Snapshot{}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Publish(ctx, slidingwindow.Snapshot{}), context.DeadlineExceeded)
}

func TestChannel_Close(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Publish(t.Context(), slidingwindow.Snapshot{}))

	// Blocked publishers are released by Close.
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Publish(t.Context(), slidingwindow.Snapshot{})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	c.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.ErrorIs(t, err, ErrClosed)
	}

	// Closing twice is fine and later publishes fail even with room.
	c.Close()
	<-c.C()
	require.ErrorIs(t, c.Publish(t.Context(), slidingwindow.Snapshot{}), ErrClosed)

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
