package mq

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/messaging"
	"github.com/shandysiswandi/pkitotp/internal/shared/event"
	"github.com/shandysiswandi/pkitotp/internal/twofa/usecase"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishSeedProvisioned(ctx context.Context, msg usecase.SeedProvisionedEvent) error {
	ctx, span := m.ins.Tracer("twofa.outbound.mq").Start(ctx, "PublishSeedProvisioned")
	defer span.End()

	body, err := json.Marshal(event.SeedProvisionedMessage{
		EventID:       msg.ID,
		Fingerprint:   msg.Fingerprint,
		StoreDriver:   msg.StoreDriver,
		ProvisionedAt: msg.At,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := map[string]string{"content-type": "application/json"}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		headers[keyOfCorrelationID] = cID
	}

	if _, err := m.client.Publish(ctx, event.SeedProvisionedDestination, messaging.Message{
		Body:    body,
		Key:     []byte(msg.Fingerprint),
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
