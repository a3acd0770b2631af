// Package queue forwards throughput snapshots to a message queue.
//
// The fan-out is optional: it is only set up when Kafka brokers are
// configured (see Config). A QueuePublisher delivers one Msg at a time and
// the snapshot encoding is provided by SnapshotMsg.
//
// KafkaPublisher requires Close to be called to stop its background
// goroutines and flush in-flight messages.
package queue
