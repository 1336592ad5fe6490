package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// BatchTimeout bounds how long the writer waits to fill a batch.
	// Events are rare, so the default is short.
	BatchTimeout time.Duration
	// Transport overrides the default kafka transport (TLS, SASL).
	Transport *kafka.Transport
}

// Kafka publishes through a single kafka-go writer; the topic is set per
// message.
type Kafka struct {
	writer *kafka.Writer

	mu     sync.RWMutex
	closed bool
}

// NewKafka constructs a Kafka publisher.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	batch := cfg.BatchTimeout
	if batch <= 0 {
		batch = 10 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batch,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if cfg.Transport != nil {
		w.Transport = cfg.Transport
	}

	return &Kafka{writer: w}, nil
}

// Close flushes pending writes and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}

// Publish writes one message to the topic and waits for broker acks.
func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return PublishResult{}, ErrClosed
	}

	kmsg := kafka.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
	}
	for key, value := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: kmsg.Time}, nil
}
