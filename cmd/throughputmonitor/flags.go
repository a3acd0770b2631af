package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/throughput-monitor/pkg/sink"
	"github.com/ava-labs/throughput-monitor/pkg/streamer"
)

// runFlags returns all CLI flags for the run command
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "networks",
			Aliases: []string{"n"},
			Usage:   "Path to the JSON file listing the networks to monitor",
			EnvVars: []string{"NETWORKS_FILE"},
			Value:   "config/networks.json",
		},
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Optional .env file with KAFKA_* settings",
			EnvVars: []string{"ENV_FILE"},
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Aliases: []string{"i"},
			Usage:   "Pause between two polls of a network",
			EnvVars: []string{"POLL_INTERVAL"},
			Value:   streamer.DefaultPollInterval,
		},
		&cli.Uint64Flag{
			Name:    "catch-up-limit",
			Aliases: []string{"c"},
			Usage:   "Maximum number of blocks fetched per poll",
			EnvVars: []string{"CATCH_UP_LIMIT"},
			Value:   streamer.DefaultCatchUpLimit,
		},
		&cli.IntFlag{
			Name:    "channel-capacity",
			Usage:   "Capacity of the snapshot channel shared by all networks",
			EnvVars: []string{"CHANNEL_CAPACITY"},
			Value:   sink.DefaultCapacity,
		},
		&cli.DurationFlag{
			Name:    "report-interval",
			Aliases: []string{"r"},
			Usage:   "Interval between text reports on stdout (0 disables)",
			EnvVars: []string{"REPORT_INTERVAL"},
			Value:   time.Second,
		},
		&cli.DurationFlag{
			Name:    "stall-interval",
			Usage:   "Interval between stall checks (0 disables)",
			EnvVars: []string{"STALL_INTERVAL"},
			Value:   15 * time.Second,
		},
		&cli.DurationFlag{
			Name:    "stall-max",
			Usage:   "Warn when a network's latest block has not advanced for this long",
			EnvVars: []string{"STALL_MAX"},
			Value:   time.Minute,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for Prometheus metrics server (empty for all interfaces)",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Aliases: []string{"m"},
			Usage:   "Port for Prometheus metrics server",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"E"},
			Usage:   "Deployment environment for metrics labels (e.g., 'production', 'staging')",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"R"},
			Usage:   "Cloud region for metrics labels (e.g., 'us-east-1')",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Aliases: []string{"P"},
			Usage:   "Cloud provider for metrics labels (e.g., 'aws', 'oci', 'gcp')",
			EnvVars: []string{"CLOUD_PROVIDER"},
			Value:   "",
		},
	}
}
