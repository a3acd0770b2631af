package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config holds the settings of the optional Kafka fan-out. Leaving Brokers
// empty disables it.
type Config struct {
	Brokers           string        `env:"KAFKA_BROKERS"`                                                // Comma separated broker addresses
	Topic             string        `env:"KAFKA_TOPIC"                    envDefault:"throughput"`         // Destination topic for snapshots
	ClientID          string        `env:"KAFKA_CLIENT_ID"                envDefault:"throughput-monitor"` // Producer client id
	CreateTopic       bool          `env:"KAFKA_CREATE_TOPIC"             envDefault:"false"`              // Create or grow the topic at startup
	Partitions        int           `env:"KAFKA_TOPIC_PARTITIONS"         envDefault:"1"`                  // Used when creating the topic
	ReplicationFactor int           `env:"KAFKA_TOPIC_REPLICATION_FACTOR" envDefault:"1"`                  // Used when creating the topic
	PublishTimeout    time.Duration `env:"KAFKA_PUBLISH_TIMEOUT"          envDefault:"5s"`                 // Upper bound on a single delivery
	EnableLogs        bool          `env:"KAFKA_ENABLE_LOGS"              envDefault:"false"`              // Forward librdkafka logs to the logger
	SASL              SASLConfig
}

// SASLConfig holds optional SASL authentication settings.
type SASLConfig struct {
	Username         string `env:"KAFKA_SASL_USERNAME"`
	Password         string `env:"KAFKA_SASL_PASSWORD"`
	Mechanism        string `env:"KAFKA_SASL_MECHANISM"    envDefault:"PLAIN"`
	SecurityProtocol string `env:"KAFKA_SECURITY_PROTOCOL" envDefault:"SASL_SSL"`
}

// Enabled reports whether credentials were provided.
func (s SASLConfig) Enabled() bool {
	return s.Username != "" && s.Password != ""
}

// ApplyToConfigMap adds the SASL settings to cm when enabled.
func (s SASLConfig) ApplyToConfigMap(cm *kafka.ConfigMap) {
	if !s.Enabled() {
		return
	}
	_ = cm.SetKey("security.protocol", s.SecurityProtocol)
	_ = cm.SetKey("sasl.mechanisms", s.Mechanism)
	_ = cm.SetKey("sasl.username", s.Username)
	_ = cm.SetKey("sasl.password", s.Password)
}

// LoadConfig reads the Kafka settings from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse kafka config: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether snapshots should be forwarded to Kafka.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Brokers) != ""
}

// Validate checks an enabled config.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Topic == "" {
		return errors.New("kafka topic cannot be empty")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("kafka publish timeout must be > 0, got %s", c.PublishTimeout)
	}
	if c.CreateTopic {
		if err := c.TopicConfig().Validate(); err != nil {
			return err
		}
	}
	if (c.SASL.Username == "") != (c.SASL.Password == "") {
		return errors.New("kafka SASL username and password must be set together")
	}
	return nil
}

// TopicConfig returns the topic settings used by EnsureTopic.
func (c Config) TopicConfig() TopicConfig {
	return TopicConfig{
		Name:              c.Topic,
		NumPartitions:     c.Partitions,
		ReplicationFactor: c.ReplicationFactor,
	}
}

// AdminConfigMap builds the ConfigMap for an admin client.
func (c Config) AdminConfigMap() *kafka.ConfigMap {
	cm := &kafka.ConfigMap{"bootstrap.servers": c.Brokers}
	c.SASL.ApplyToConfigMap(cm)
	return cm
}

// ProducerConfigMap builds the ConfigMap for the snapshot producer.
func (c Config) ProducerConfigMap() *kafka.ConfigMap {
	cm := &kafka.ConfigMap{
		"bootstrap.servers": c.Brokers,
		"client.id":         c.ClientID,

		// Snapshots are superseded every tick; one ack is enough.
		"acks":             "1",
		"linger.ms":        5,
		"compression.type": "lz4",

		"go.logs.channel.enable": c.EnableLogs,
	}
	c.SASL.ApplyToConfigMap(cm)
	return cm
}
