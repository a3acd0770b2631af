package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const (
	flushTimeoutMs = 5000
	queueFullDelay = 100 * time.Millisecond
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("kafka publisher closed")

// KafkaPublisher is a synchronous Kafka producer implementation of QueuePublisher.
//
// Publish blocks until Kafka confirms delivery, the publish timeout elapses
// or the context is canceled. A background goroutine drains producer events
// and reports fatal errors on Errors().
type KafkaPublisher struct {
	producer *kafka.Producer
	log      *zap.SugaredLogger
	timeout  time.Duration

	errCh    chan error
	closedCh chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

var _ QueuePublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a producer for cfg. The caller must Close it.
func NewKafkaPublisher(cfg Config, log *zap.SugaredLogger) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka brokers not configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	p, err := kafka.NewProducer(cfg.ProducerConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	q := &KafkaPublisher{
		producer: p,
		log:      log.With("component", "kafka-publisher"),
		timeout:  cfg.PublishTimeout,
		errCh:    make(chan error, 1),
		closedCh: make(chan struct{}),
	}

	q.wg.Add(1)
	go q.monitorEvents()
	if cfg.EnableLogs {
		q.wg.Add(1)
		go q.forwardLogs()
	}
	return q, nil
}

// Publish produces msg and waits for its delivery report.
//
// If the context is canceled first, Publish returns ctx.Err() and the
// message may still be delivered later.
func (q *KafkaPublisher) Publish(ctx context.Context, msg Msg) error {
	select {
	case <-q.closedCh:
		return ErrPublisherClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	kMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &msg.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: toKafkaHeaders(msg.Headers),
	}

	deliveryCh := make(chan kafka.Event, 1)
	if err := q.produce(ctx, kMsg, deliveryCh); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryCh:
		return q.handleDelivery(e)
	}
}

// Errors returns a channel that receives a fatal producer error, after which
// the publisher is no longer usable. It is closed by Close.
func (q *KafkaPublisher) Errors() <-chan error {
	return q.errCh
}

// Close flushes pending messages and closes the producer. If ctx is done
// before the flush completes, remaining messages are dropped.
// Calling Close more than once does nothing.
func (q *KafkaPublisher) Close(ctx context.Context) {
	q.once.Do(func() {
		q.log.Info("closing kafka publisher")
		close(q.closedCh)
		q.wg.Wait()
		defer close(q.errCh)

		for remaining := q.producer.Flush(flushTimeoutMs); remaining > 0; remaining = q.producer.Flush(flushTimeoutMs) {
			if ctx.Err() != nil {
				q.log.Warnw("dropping unflushed messages", "remaining", remaining)
				break
			}
			q.log.Warnw("producer queue not flushed, retrying", "remaining", remaining)
		}
		q.producer.Close()
	})
}

// produce enqueues msg, retrying while the local producer queue is full.
func (q *KafkaPublisher) produce(ctx context.Context, msg *kafka.Message, deliveryCh chan kafka.Event) error {
	for {
		err := q.producer.Produce(msg, deliveryCh)
		if err == nil {
			return nil
		}

		var kafkaErr kafka.Error
		if !errors.As(err, &kafkaErr) || kafkaErr.Code() != kafka.ErrQueueFull {
			return fmt.Errorf("failed to produce: %w", err)
		}

		q.log.Debug("producer queue full, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(queueFullDelay):
		}
	}
}

func (q *KafkaPublisher) handleDelivery(ev kafka.Event) error {
	switch e := ev.(type) {
	case *kafka.Message:
		if err := e.TopicPartition.Error; err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}
		q.log.Debugw("delivered snapshot",
			"topic", *e.TopicPartition.Topic,
			"partition", e.TopicPartition.Partition,
			"offset", e.TopicPartition.Offset,
			"key", string(e.Key))
		return nil
	case kafka.Error:
		return fmt.Errorf("kafka error: code=%d fatal=%t: %w", e.Code(), e.IsFatal(), e)
	default:
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}
}

// monitorEvents drains producer-level events. Delivery reports go to the
// per-message channel, so only errors are expected here.
func (q *KafkaPublisher) monitorEvents() {
	defer q.wg.Done()
	for {
		select {
		case <-q.closedCh:
			return
		case ev, ok := <-q.producer.Events():
			if !ok {
				q.reportFatal(errors.New("kafka producer event channel closed"))
				return
			}
			switch e := ev.(type) {
			case kafka.Error:
				if e.IsFatal() || e.Code() == kafka.ErrAllBrokersDown {
					q.reportFatal(fmt.Errorf("fatal kafka error %#x: %w", e.Code(), e))
					return
				}
				q.log.Warnw("ignoring kafka error", "code", e.Code(), "error", e)
			default:
				q.log.Debugw("ignoring kafka event", "event", e.String())
			}
		}
	}
}

func (q *KafkaPublisher) forwardLogs() {
	defer q.wg.Done()
	for {
		select {
		case <-q.closedCh:
			return
		case l, ok := <-q.producer.Logs():
			if !ok {
				return
			}
			q.log.Debugw("librdkafka", "level", l.Level, "tag", l.Tag, "message", l.Message)
		}
	}
}

func (q *KafkaPublisher) reportFatal(err error) {
	select {
	case q.errCh <- err:
	default:
		q.log.Warnw("dropping kafka error, one already pending", "error", err)
	}
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}
