package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/queue"
)

// Config holds all configuration for the run command
type Config struct {
	Verbose      bool
	NetworksFile string
	EnvFile      string

	// Polling settings
	PollInterval    time.Duration
	CatchUpLimit    uint64
	ChannelCapacity int

	// Reporting settings
	ReportInterval time.Duration
	StallInterval  time.Duration
	StallMax       time.Duration

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	Environment   string
	Region        string
	CloudProvider string

	// Optional Kafka fan-out, read from the environment
	Kafka queue.Config
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// MetricsLabels returns the constant labels applied to all metrics
func (c *Config) MetricsLabels() metrics.Labels {
	return metrics.Labels{
		Environment:   c.Environment,
		Region:        c.Region,
		CloudProvider: c.CloudProvider,
	}
}

// Validate checks value ranges the flags cannot express
func (c *Config) Validate() error {
	if c.NetworksFile == "" {
		return errors.New("networks file cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %s", c.PollInterval)
	}
	if c.CatchUpLimit == 0 {
		return errors.New("catch-up limit must be > 0")
	}
	if c.ChannelCapacity <= 0 {
		return fmt.Errorf("channel capacity must be > 0, got %d", c.ChannelCapacity)
	}
	if c.ReportInterval < 0 || c.StallInterval < 0 {
		return errors.New("report and stall intervals cannot be negative")
	}
	if c.StallInterval > 0 && c.StallMax <= 0 {
		return fmt.Errorf("stall max must be > 0 when stall checks are enabled, got %s", c.StallMax)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.MetricsPort)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("invalid kafka config: %w", err)
	}
	return nil
}

// buildConfig builds a Config from CLI context flags and, for Kafka, the
// environment. The optional env file is loaded first and never overrides
// variables that are already set.
func buildConfig(c *cli.Context) (*Config, error) {
	envFile := c.String("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	kafkaCfg, err := queue.LoadConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Verbose:         c.Bool("verbose"),
		NetworksFile:    c.String("networks"),
		EnvFile:         envFile,
		PollInterval:    c.Duration("poll-interval"),
		CatchUpLimit:    c.Uint64("catch-up-limit"),
		ChannelCapacity: c.Int("channel-capacity"),
		ReportInterval:  c.Duration("report-interval"),
		StallInterval:   c.Duration("stall-interval"),
		StallMax:        c.Duration("stall-max"),
		MetricsHost:     c.String("metrics-host"),
		MetricsPort:     c.Int("metrics-port"),
		Environment:     c.String("environment"),
		Region:          c.String("region"),
		CloudProvider:   c.String("cloud-provider"),
		Kafka:           kafkaCfg,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
