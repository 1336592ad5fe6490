package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/pkitotp/internal/twofa"
)

func (a *App) initModules() {
	if err := twofa.New(a.ctx, twofa.Dependency{
		Store:       a.seedStore,
		StoreDriver: a.storeDriver,
		Decryptor:   a.decryptor,
		Goroutine:   a.goroutine,
		Router:      a.router,
		Messaging:   a.messaging,
		Config:      a.config,
		Instrument:  a.ins,
		HMAC:        a.hmac,
		Clock:       a.clock,
		Totp:        a.totp,
		Validator:   a.validator,
		UID:         a.snowflake,
		Idempotency: a.idemp,
		Limiter:     a.limiter,
	}); err != nil {
		slog.Error("failed to init module twofa", "error", err)
		os.Exit(1)
	}
}
