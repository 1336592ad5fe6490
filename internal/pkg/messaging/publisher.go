package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrTopicRequired is returned when Publish is called without a topic.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrClosed is returned when publishing through a closed publisher.
	ErrClosed = errors.New("messaging: publisher closed")
)

// Publisher sends messages to a named topic (subject for NATS).
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) (PublishResult, error)
	io.Closer
}

// Message is a broker-neutral outgoing message.
type Message struct {
	// Body is the raw payload.
	Body []byte
	// Key is used for partitioning where the broker supports it (Kafka) and
	// as the ordering key for Pub/Sub.
	Key []byte
	// Headers are carried as native headers (Kafka, NATS) or attributes
	// (Pub/Sub). NSQ has no header support and drops them.
	Headers map[string]string
}

// PublishResult reports broker-side metadata about a published message.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Noop discards every message. It backs the "none" driver.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(ctx context.Context, topic string, _ Message) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	return PublishResult{Topic: topic, Timestamp: time.Now()}, nil
}

// Close implements io.Closer.
func (Noop) Close() error { return nil }
