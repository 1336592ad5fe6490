// Package messaging publishes domain events to a broker.
//
// Business code depends on Publisher only, so the broker (Kafka, NATS, NSQ,
// Google Pub/Sub or none at all) is a deployment choice made in the factory.
package messaging
