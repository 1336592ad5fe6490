package twofa

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/config"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/pkitotp/internal/pkg/hash"
	"github.com/shandysiswandi/pkitotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/messaging"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
	"github.com/shandysiswandi/pkitotp/internal/pkg/ratelimit"
	"github.com/shandysiswandi/pkitotp/internal/pkg/router"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seedstore"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
	"github.com/shandysiswandi/pkitotp/internal/pkg/validator"
	"github.com/shandysiswandi/pkitotp/internal/twofa/inbound"
	"github.com/shandysiswandi/pkitotp/internal/twofa/outbound/mq"
	"github.com/shandysiswandi/pkitotp/internal/twofa/usecase"
)

type Dependency struct {
	Store       seedstore.Store            `validate:"required"`
	StoreDriver string                     `validate:"required"`
	Decryptor   *seed.Decryptor            `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Messaging   messaging.Publisher        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	HMAC        hash.Fingerprinter         `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Totp        otp.OTP                    `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	// Idempotency is nil when no redis is configured.
	Idempotency idempotency.Idempotency
	// Limiter is nil when rate limiting is disabled.
	Limiter *ratelimit.Limiter
}

func New(ctx context.Context, dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Store:         dep.Store,
		StoreDriver:   dep.StoreDriver,
		Decryptor:     dep.Decryptor,
		OTP:           dep.Totp,
		Fingerprint:   dep.HMAC,
		RepoMessaging: repoMsg,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
		UID:           dep.UID,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Limiter, dep.Clock)

	if dep.Config.GetBool("codelog.enabled") {
		in := usecase.CodeLogInput{
			Path:     dep.Config.GetString("codelog.output_path"),
			Interval: dep.Config.GetSecond("codelog.interval_seconds"),
		}
		started := dep.Goroutine.Go(ctx, "code log", func(ctx context.Context) error {
			return uc.RunCodeLog(ctx, in)
		})
		slog.Info("code log", "started", started, "path", in.Path, "interval", in.Interval.String())
	}

	return nil
}
