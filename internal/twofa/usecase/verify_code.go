package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
)

type VerifyCodeInput struct {
	Code string
}

type VerifyCodeOutput struct {
	Valid bool
}

func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	if in.Code == "" {
		return nil, goerror.NewInvalidFormat(msgMissingCode)
	}

	secret, err := s.loadSeed(ctx)
	if err != nil {
		return nil, err
	}

	if !otp.ValidCandidate(in.Code) {
		slog.InfoContext(ctx, "rejecting code with wrong shape", "kind", seed.Kind(seed.ErrMalformedCode))
	}

	valid, err := s.otp.Verify(secret, in.Code, verifyWindow, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify code", "error", err)
		return nil, goerror.NewServerMsg(err, msgSeedNotReady)
	}

	if s.verifyCounter != nil {
		s.verifyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("valid", strconv.FormatBool(valid))))
	}
	span.SetAttributes(attribute.Bool("twofa.valid", valid))

	return &VerifyCodeOutput{Valid: valid}, nil
}
