package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ava-labs/throughput-monitor/pkg/metrics"
	"github.com/ava-labs/throughput-monitor/pkg/sink"
	"github.com/ava-labs/throughput-monitor/pkg/streamer"
)

// parseConfig runs the run command with args and returns the built config.
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var (
		cfg      *Config
		buildErr error
	)
	app := &cli.App{
		Name: "throughputmonitor",
		Commands: []*cli.Command{{
			Name:  "run",
			Flags: runFlags(),
			Action: func(c *cli.Context) error {
				cfg, buildErr = buildConfig(c)
				return nil
			},
		}},
	}
	require.NoError(t, app.Run(append([]string{"throughputmonitor", "run"}, args...)))
	return cfg, buildErr
}

func TestBuildConfig_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := parseConfig(t)
	require.NoError(t, err)

	assert.False(t, cfg.Verbose)
	assert.Equal(t, "config/networks.json", cfg.NetworksFile)
	assert.Equal(t, streamer.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, streamer.DefaultCatchUpLimit, cfg.CatchUpLimit)
	assert.Equal(t, sink.DefaultCapacity, cfg.ChannelCapacity)
	assert.Equal(t, time.Second, cfg.ReportInterval)
	assert.Equal(t, 15*time.Second, cfg.StallInterval)
	assert.Equal(t, time.Minute, cfg.StallMax)
	assert.Equal(t, ":9090", cfg.MetricsAddr())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestBuildConfig_Flags(t *testing.T) {
	cfg, err := parseConfig(t,
		"-v",
		"-n", "/etc/monitor/networks.json",
		"--poll-interval", "2s",
		"--catch-up-limit", "25",
		"--channel-capacity", "32",
		"--report-interval", "0",
		"--stall-interval", "0",
		"--metrics-host", "127.0.0.1",
		"--metrics-port", "9191",
		"--environment", "staging",
		"--region", "eu-west-1",
	)
	require.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/etc/monitor/networks.json", cfg.NetworksFile)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, uint64(25), cfg.CatchUpLimit)
	assert.Equal(t, 32, cfg.ChannelCapacity)
	assert.Zero(t, cfg.ReportInterval)
	assert.Zero(t, cfg.StallInterval)
	assert.Equal(t, "127.0.0.1:9191", cfg.MetricsAddr())
	assert.Equal(t, metrics.Labels{Environment: "staging", Region: "eu-west-1"}, cfg.MetricsLabels())
}

func TestBuildConfig_EnvVars(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("NETWORKS_FILE", "nets.json")
	t.Setenv("CATCH_UP_LIMIT", "3")

	cfg, err := parseConfig(t)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "nets.json", cfg.NetworksFile)
	assert.Equal(t, uint64(3), cfg.CatchUpLimit)
}

func TestBuildConfig_EnvFile(t *testing.T) {
	// t.Setenv restores the variables godotenv sets.
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	require.NoError(t, os.Unsetenv("KAFKA_BROKERS"))
	require.NoError(t, os.Unsetenv("KAFKA_TOPIC"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAFKA_BROKERS=localhost:9092\nKAFKA_TOPIC=rates\n"), 0o600))

	cfg, err := parseConfig(t, "--env-file", path)
	require.NoError(t, err)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "rates", cfg.Kafka.Topic)
}

func TestBuildConfig_MissingEnvFile(t *testing.T) {
	_, err := parseConfig(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "failed to load env file")
}

func TestBuildConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "zero poll interval", args: []string{"--poll-interval", "0"}, wantErr: "poll interval must be > 0"},
		{name: "zero catch-up", args: []string{"--catch-up-limit", "0"}, wantErr: "catch-up limit must be > 0"},
		{name: "zero channel capacity", args: []string{"--channel-capacity", "0"}, wantErr: "channel capacity must be > 0"},
		{name: "zero stall max", args: []string{"--stall-max", "0"}, wantErr: "stall max must be > 0"},
		{name: "bad port", args: []string{"--metrics-port", "70000"}, wantErr: "invalid metrics port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(t, tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
