package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
)

type GenerateCodeOutput struct {
	Code     string
	ValidFor int
}

func (s *Usecase) GenerateCode(ctx context.Context) (*GenerateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateCode")
	defer span.End()

	secret, err := s.loadSeed(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	code, err := s.otp.Generate(secret, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "error", err)
		return nil, goerror.NewServerMsg(err, msgSeedNotReady)
	}

	return &GenerateCodeOutput{
		Code:     code,
		ValidFor: otp.SecondsRemaining(otp.Period, now),
	}, nil
}
