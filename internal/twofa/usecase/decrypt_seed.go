package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
)

type DecryptSeedInput struct {
	// EncryptedSeed may be empty; the decryptor rejects it as a format error.
	EncryptedSeed  string
	IdempotencyKey string `validate:"omitempty,max=128"`
}

func (s *Usecase) DecryptSeed(ctx context.Context, in DecryptSeedInput) error {
	ctx, span := s.startSpan(ctx, "DecryptSeed")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if s.idemp == nil || in.IdempotencyKey == "" {
		return s.provision(ctx, in.EncryptedSeed)
	}

	var opts []idempotency.Option
	if s.cfg != nil {
		opts = append(opts, idempotency.WithStateTTL(s.cfg.GetSecond("idempotency.state_ttl_seconds")))
	}

	err := s.idemp.Exec(ctx, in.IdempotencyKey, func(ctx context.Context) error {
		return s.provision(ctx, in.EncryptedSeed)
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "seed already provisioned for idempotency key")
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return goerror.NewBusiness("Request already in progress", goerror.CodeConflict)
	}

	if _, ok := goerror.As(err); ok {
		return err
	}

	slog.ErrorContext(ctx, "idempotency tracker failed", "error", err)
	return goerror.NewServerMsg(err, msgDecryptionFailed)
}

func (s *Usecase) provision(ctx context.Context, blob string) error {
	secret, err := s.decryptor.Decrypt(blob)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt seed", "kind", seed.Kind(err), "error", err)
		return goerror.NewServerMsg(err, msgDecryptionFailed)
	}

	if err := s.store.Put(ctx, secret); err != nil {
		slog.ErrorContext(ctx, "failed to store seed", "kind", seed.Kind(err), "error", err)
		return goerror.NewServerMsg(err, msgDecryptionFailed)
	}

	slog.InfoContext(ctx, "seed provisioned", "store", s.storeDriver)
	s.announce(ctx, secret)

	return nil
}

// announce publishes seed.provisioned in the background. Delivery is best
// effort: failures are retried, then logged.
func (s *Usecase) announce(ctx context.Context, secret string) {
	if s.repoMessaging == nil || s.fingerprint == nil {
		return
	}

	msg := SeedProvisionedEvent{
		Fingerprint: s.fingerprint.Fingerprint(secret),
		StoreDriver: s.storeDriver,
		At:          s.clock.Now().Unix(),
	}
	if s.uid != nil {
		msg.ID = s.uid.Generate()
	}

	s.goroutine.Go(context.WithoutCancel(ctx), "publish seed provisioned", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(s.repoMessaging.PublishSeedProvisioned(ctx, msg))
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to publish seed provisioned event", "error", err)
		}

		return nil
	})
}
