package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

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
	"github.com/shandysiswandi/pkitotp/internal/pkg/storage"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
	"github.com/shandysiswandi/pkitotp/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Fingerprinter
	uuid      uid.StringID
	snowflake uid.NumberID
	totp      otp.OTP
	decryptor *seed.Decryptor
	limiter   *ratelimit.Limiter

	// resources, optional ones stay nil when unused
	dbConn      *pgxpool.Pool
	cacheConn   *redis.Client
	idemp       idempotency.Idempotency
	messaging   messaging.Publisher
	storage     storage.Storage
	seedStore   seedstore.Store
	storeDriver string

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initPrivateKey()
	app.initCache()
	app.initDatabase()
	app.initStorage()
	app.initSeedStore()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
