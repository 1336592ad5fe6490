package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/messaging"
	"github.com/shandysiswandi/pkitotp/internal/shared/event"
	"github.com/shandysiswandi/pkitotp/internal/twofa/usecase"
)

type recordingPublisher struct {
	topic string
	msg   messaging.Message
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg messaging.Message) (messaging.PublishResult, error) {
	p.topic, p.msg = topic, msg
	return messaging.PublishResult{Topic: topic}, p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestMessaging_PublishSeedProvisioned(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	m := NewMessaging(pub, instrument.NewNoop())

	ctx := instrument.SetCorrelationID(context.Background(), "cid-1")
	err := m.PublishSeedProvisioned(ctx, usecase.SeedProvisionedEvent{
		ID:          42,
		Fingerprint: "abc123",
		StoreDriver: "file",
		At:          1700000000,
	})
	require.NoError(t, err)

	require.Equal(t, event.SeedProvisionedDestination, pub.topic)
	require.Equal(t, "cid-1", pub.msg.Headers[keyOfCorrelationID])
	require.Equal(t, []byte("abc123"), pub.msg.Key)

	var body event.SeedProvisionedMessage
	require.NoError(t, json.Unmarshal(pub.msg.Body, &body))
	require.Equal(t, event.SeedProvisionedMessage{
		EventID:       42,
		Fingerprint:   "abc123",
		StoreDriver:   "file",
		ProvisionedAt: 1700000000,
	}, body)
}

func TestMessaging_PublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	m := NewMessaging(&recordingPublisher{err: boom}, instrument.NewNoop())

	err := m.PublishSeedProvisioned(context.Background(), usecase.SeedProvisionedEvent{Fingerprint: "x"})
	require.ErrorIs(t, err, boom)
}
