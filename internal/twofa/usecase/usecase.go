package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/config"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/pkitotp/internal/pkg/hash"
	"github.com/shandysiswandi/pkitotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seedstore"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
	"github.com/shandysiswandi/pkitotp/internal/pkg/validator"
)

const (
	msgDecryptionFailed = "Decryption failed"
	msgSeedNotReady     = "Seed not decrypted yet"
	msgMissingCode      = "Missing code"

	// verifyWindow accepts the previous and next step as well as the current.
	verifyWindow uint = 1
)

type SeedProvisionedEvent struct {
	ID          int64
	Fingerprint string
	StoreDriver string
	At          int64
}

type repoMessaging interface {
	PublishSeedProvisioned(ctx context.Context, msg SeedProvisionedEvent) error
}

type decryptor interface {
	Decrypt(blob string) (string, error)
}

type Usecase struct {
	store       seedstore.Store
	storeDriver string
	decryptor   decryptor
	otp         otp.OTP
	fingerprint hash.Fingerprinter

	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
	uid           uid.NumberID

	verifyCounter metric.Int64Counter
	lastCodeLog   *atomic.Time
}

type Dependency struct {
	Store         seedstore.Store
	StoreDriver   string
	Decryptor     decryptor
	OTP           otp.OTP
	Fingerprint   hash.Fingerprinter
	RepoMessaging repoMessaging
	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Config      config.Config
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	Goroutine   *goroutine.Manager
	// UID numbers published events; nil leaves the id zero.
	UID uid.NumberID
}

func New(dep Dependency) *Usecase {
	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	counter, err := ins.Meter("twofa.usecase").Int64Counter("twofa.verify.result",
		metric.WithDescription("Number of verified codes by outcome"))
	if err != nil {
		slog.Warn("failed to create verify counter", "error", err)
	}

	return &Usecase{
		store:         dep.Store,
		storeDriver:   dep.StoreDriver,
		decryptor:     dep.Decryptor,
		otp:           dep.OTP,
		fingerprint:   dep.Fingerprint,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		ins:           ins,
		goroutine:     dep.Goroutine,
		uid:           dep.UID,
		verifyCounter: counter,
		lastCodeLog:   atomic.NewTime(time.Time{}),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofa.usecase").Start(ctx, name)
}

// loadSeed reads the stored secret. Any failure, including a stored value that
// is no longer a valid seed, is reported as the seed not being ready.
func (s *Usecase) loadSeed(ctx context.Context) (string, error) {
	secret, err := s.store.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read seed from store", "kind", seed.Kind(err), "error", err)
		return "", goerror.NewServerMsg(err, msgSeedNotReady)
	}

	if err := seed.Validate(secret); err != nil {
		slog.ErrorContext(ctx, "stored seed is corrupted", "kind", seed.Kind(err))
		return "", goerror.NewServerMsg(errors.Join(seed.ErrStoreUnavailable, err), msgSeedNotReady)
	}

	return secret, nil
}
