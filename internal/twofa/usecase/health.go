package usecase

import (
	"context"
	"log/slog"
	"time"
)

type HealthOutput struct {
	SeedPresent bool
	LastCodeLog time.Time
}

// Health reports liveness details. A failing store only flips SeedPresent.
func (s *Usecase) Health(ctx context.Context) *HealthOutput {
	ctx, span := s.startSpan(ctx, "Health")
	defer span.End()

	present, err := s.store.Exists(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to check seed presence", "error", err)
	}

	return &HealthOutput{
		SeedPresent: present,
		LastCodeLog: s.lastCodeLog.Load(),
	}
}
