//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/throughput-monitor/internal/chainclient/evm"
	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/queue"
	"github.com/ava-labs/throughput-monitor/pkg/sink"
	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
	"github.com/ava-labs/throughput-monitor/pkg/streamer"
	"github.com/ava-labs/throughput-monitor/pkg/utils"
)

// TestE2EMonitorPublishesSnapshots streams a live network into Kafka and
// reads the snapshots back. It assumes Docker Compose has started Kafka.
func TestE2EMonitorPublishesSnapshots(t *testing.T) {
	// ---- Config (can be overridden via env to match local setup) ----
	rpcURL := getEnvStr("RPC_URL", "https://api.avax-test.network/ext/bc/C/rpc")
	label := getEnvStr("NETWORK_LABEL", "Fuji")
	catchUp := getEnvUint64(t, "CATCH_UP_LIMIT", streamer.DefaultCatchUpLimit)
	kafkaCfg := queue.Config{
		Brokers:           getEnvStr("KAFKA_BROKERS", "localhost:9092"),
		Topic:             getEnvStr("KAFKA_TOPIC", "throughput_e2e"),
		ClientID:          getEnvStr("KAFKA_CLIENT_ID", "throughput-monitor-e2e"),
		CreateTopic:       true,
		Partitions:        1,
		ReplicationFactor: 1,
		PublishTimeout:    10 * time.Second,
	}

	// ---- Test context ----
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	log, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)
	defer log.Desugar().Sync() //nolint:errcheck

	// ---- Kafka ----
	require.NoError(t, queue.EnsureTopic(ctx, kafkaCfg, log), "kafka unavailable (is docker-compose up?)")
	publisher, err := queue.NewKafkaPublisher(kafkaCfg, log)
	require.NoError(t, err)
	defer publisher.Close(context.Background())

	// ---- Pipeline ----
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	client, err := evm.Dial(ctx, evm.KindCoreth, rpcURL, evm.WithMetrics(m, label))
	require.NoError(t, err, "rpc dial failed (check RPC_URL)")
	defer client.Close()

	board := sink.NewBoard([]string{label})
	ch := sink.NewChannel(sink.DefaultCapacity)
	consumer, err := sink.NewConsumer(log, ch, board,
		sink.WithQueue(publisher, kafkaCfg.Topic),
		sink.WithConsumerMetrics(m),
	)
	require.NoError(t, err)

	s, err := streamer.New(log, client, slidingwindow.NewWindow(label), ch,
		streamer.WithCatchUpLimit(catchUp),
		streamer.WithMetrics(m),
	)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return s.Run(gctx) })

	// ---- Verify ----
	kc, err := ckafka.NewConsumer(&ckafka.ConfigMap{
		"bootstrap.servers": kafkaCfg.Brokers,
		"group.id":          "throughput-e2e-" + time.Now().Format("150405.000"),
		"auto.offset.reset": "earliest",
	})
	require.NoError(t, err)
	defer kc.Close()
	require.NoError(t, kc.Subscribe(kafkaCfg.Topic, nil))

	var latest slidingwindow.Snapshot
	deadline := time.Now().Add(45 * time.Second)
	for latest.LatestBlock == 0 && time.Now().Before(deadline) {
		msg, err := kc.ReadMessage(time.Second)
		if err != nil {
			continue
		}
		if string(msg.Key) != label {
			continue
		}
		require.NoError(t, json.Unmarshal(msg.Value, &latest))
	}
	require.NotZero(t, latest.LatestBlock, "no snapshot with a block was consumed from kafka")
	require.Equal(t, label, latest.Network)
	require.GreaterOrEqual(t, latest.TxPerSecond, 0.0)

	rows := board.Rows()
	require.Len(t, rows, 1)
	require.GreaterOrEqual(t, rows[0].LatestBlock, latest.LatestBlock)

	stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("pipeline failed: %v", err)
	}
}
