package inbound

import (
	"context"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/ratelimit"
	"github.com/shandysiswandi/pkitotp/internal/pkg/router"
	"github.com/shandysiswandi/pkitotp/internal/twofa/usecase"
)

type uc interface {
	DecryptSeed(ctx context.Context, in usecase.DecryptSeedInput) error
	GenerateCode(ctx context.Context) (*usecase.GenerateCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
	Health(ctx context.Context) *usecase.HealthOutput
}

// RegisterHTTPEndpoint mounts the service routes. A nil limiter disables
// rate limiting on /verify-2fa.
func RegisterHTTPEndpoint(r *router.Router, uc uc, limiter *ratelimit.Limiter, clk clock.Clocker) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/health", end.Health)

	r.POST("/decrypt-seed", end.DecryptSeed)
	r.GET("/generate-2fa", end.GenerateCode)
	r.POST("/verify-2fa", end.VerifyCode, router.RateLimit(limiter, clk))
}
