package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by messaging.driver.
const (
	DriverNone         = "none"
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions holds the settings of every backend; only the one matching
// the driver is read.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
}

type constructor func(ctx context.Context, opts FactoryOptions) (Publisher, error)

var constructors = map[string]constructor{
	DriverNone: func(context.Context, FactoryOptions) (Publisher, error) { return Noop{}, nil },
	DriverNSQ: func(_ context.Context, o FactoryOptions) (Publisher, error) {
		return NewNSQ(o.NSQ)
	},
	DriverKafka: func(_ context.Context, o FactoryOptions) (Publisher, error) {
		return NewKafka(o.Kafka)
	},
	DriverNATS: func(_ context.Context, o FactoryOptions) (Publisher, error) {
		return NewNATS(o.NATS)
	},
	DriverGooglePubSub: func(ctx context.Context, o FactoryOptions) (Publisher, error) {
		return NewPubSub(ctx, o.PubSub)
	},
}

// NewFromDriver builds the Publisher for driver, matched case-insensitively.
// An empty driver means DriverNone.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Publisher, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "" {
		name = DriverNone
	}

	build, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	pub, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}

	return pub, nil
}
