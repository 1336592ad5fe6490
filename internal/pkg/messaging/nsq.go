package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// ErrNSQAddrRequired is returned when the nsqd address is missing.
var ErrNSQAddrRequired = errors.New("messaging: nsq nsqd address is required")

// NSQConfig configures the NSQ publisher.
type NSQConfig struct {
	// Addr is the nsqd TCP address.
	Addr string
	// Config overrides the default producer config.
	Config *nsq.Config
}

// NSQ publishes to a single nsqd. NSQ messages have no headers, so
// Message.Headers and Message.Key are ignored.
type NSQ struct {
	producer *nsq.Producer

	mu     sync.RWMutex
	closed bool
}

// NewNSQ constructs an NSQ producer. The connection is opened lazily by
// the first publish.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.Addr == "" {
		return nil, ErrNSQAddrRequired
	}

	ncfg := cfg.Config
	if ncfg == nil {
		ncfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.Addr, ncfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	n.producer.Stop()
	return nil
}

// Ping checks the nsqd connection.
func (n *NSQ) Ping() error {
	return n.producer.Ping()
}

// Publish sends msg.Body to the topic. The go-nsq producer is synchronous
// and does not take a context, so ctx is only checked up front.
func (n *NSQ) Publish(ctx context.Context, topic string, msg Message) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return PublishResult{}, ErrClosed
	}

	if err := n.producer.Publish(topic, msg.Body); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: time.Now()}, nil
}
