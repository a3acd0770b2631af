package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/throughput-monitor/internal/chainclient/evm"
	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/networks"
	"github.com/ava-labs/throughput-monitor/pkg/queue"
	"github.com/ava-labs/throughput-monitor/pkg/sink"
	"github.com/ava-labs/throughput-monitor/pkg/slidingwindow"
	"github.com/ava-labs/throughput-monitor/pkg/streamer"
	"github.com/ava-labs/throughput-monitor/pkg/utils"
)

const flushTimeoutOnClose = 15 * time.Second

func run(c *cli.Context) error {
	// Build configuration from CLI flags
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"networksFile", cfg.NetworksFile,
		"envFile", cfg.EnvFile,
		"pollInterval", cfg.PollInterval,
		"catchUpLimit", cfg.CatchUpLimit,
		"channelCapacity", cfg.ChannelCapacity,
		"reportInterval", cfg.ReportInterval,
		"stallInterval", cfg.StallInterval,
		"stallMax", cfg.StallMax,
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
		"kafkaEnabled", cfg.Kafka.Enabled(),
		"kafkaTopic", cfg.Kafka.Topic,
	)

	nets, err := networks.Load(cfg.NetworksFile)
	if err != nil {
		return fmt.Errorf("failed to load networks: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return monitor(ctx, cfg, nets, sugar, os.Stdout)
}

// monitor dials every network, then streams all of them until ctx is done.
// Any setup failure aborts before a streamer starts.
func monitor(ctx context.Context, cfg *Config, nets []networks.Network, sugar *zap.SugaredLogger, out io.Writer) error {
	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, cfg.MetricsLabels())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	clients := make([]*evm.Client, 0, len(nets))
	defer func() {
		for _, cl := range clients {
			cl.Close()
		}
	}()
	for _, n := range nets {
		cl, err := evm.Dial(ctx, n.ClientKind(), n.HTTP, evm.WithMetrics(m, n.Label))
		if err != nil {
			return fmt.Errorf("failed to dial %s: %w", n.Label, err)
		}
		clients = append(clients, cl)
	}

	board := sink.NewBoard(networks.Labels(nets))
	ch := sink.NewChannel(cfg.ChannelCapacity)

	consumerOpts := []sink.ConsumerOption{sink.WithConsumerMetrics(m)}
	var kafkaErrCh <-chan error
	if cfg.Kafka.Enabled() {
		if cfg.Kafka.CreateTopic {
			if err := queue.EnsureTopic(ctx, cfg.Kafka, sugar); err != nil {
				return fmt.Errorf("failed to ensure kafka topic exists: %w", err)
			}
		}
		publisher, err := queue.NewKafkaPublisher(cfg.Kafka, sugar)
		if err != nil {
			return fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), flushTimeoutOnClose)
			defer cancel()
			publisher.Close(closeCtx)
		}()
		kafkaErrCh = publisher.Errors()
		consumerOpts = append(consumerOpts, sink.WithQueue(publisher, cfg.Kafka.Topic))
	}

	consumer, err := sink.NewConsumer(sugar, ch, board, consumerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	streamers := make([]*streamer.Streamer, len(nets))
	for i, n := range nets {
		s, err := streamer.New(sugar, clients[i], slidingwindow.NewWindow(n.Label), ch,
			streamer.WithPollInterval(cfg.PollInterval),
			streamer.WithCatchUpLimit(cfg.CatchUpLimit),
			streamer.WithMetrics(m),
		)
		if err != nil {
			return fmt.Errorf("failed to create streamer for %s: %w", n.Label, err)
		}
		streamers[i] = s
	}

	// Start metrics server
	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry, metrics.WithHandler("/networks", board))
	metricsErrCh := metricsServer.Start()
	sugar.Infof("metrics server listening on http://%s/metrics", metricsServer.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	for i, s := range streamers {
		label := nets[i].Label
		g.Go(func() error {
			sugar.Infow("starting streamer", "network", label, "rpc", nets[i].HTTP)
			err := s.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				// One network failing must not stop the others.
				sugar.Errorw("streamer stopped", "network", label, "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})
	if kafkaErrCh != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-kafkaErrCh:
				if !ok {
					return nil
				}
				return fmt.Errorf("kafka publisher failed: %w", err)
			}
		})
	}

	if cfg.ReportInterval > 0 {
		go sink.StartReporter(gctx, out, board, cfg.ReportInterval)
	}
	if cfg.StallInterval > 0 {
		go sink.StartStallWatchdog(gctx, sugar, board, m, cfg.StallInterval, cfg.StallMax)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("run failed", "error", err)
	}

	// Gracefully shutdown metrics server
	sugar.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("metrics server shutdown error", "error", err)
	}

	sugar.Info("shutdown complete")
	return err
}
