package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

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

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path,
		config.WithDefaults(configDefaults),
		config.WithEnvAliases(envAliases),
	)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.totp = otp.NewEngine(a.config.GetString("otp.issuer"))
	a.limiter = ratelimit.New(
		a.config.GetFloat64("app.server.rate_limit.rps"),
		a.config.GetInt("app.server.rate_limit.burst"),
		a.config.GetSecond("app.server.rate_limit.idle_ttl_seconds"),
	)

	hmacKey := a.config.GetString("hash.hmac.secret")
	if hmacKey == "" {
		slog.Warn("hash.hmac.secret is empty, seed fingerprints are unkeyed")
	}
	a.hmac = hash.NewHMACSHA256(hmacKey)

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.snowflake = snow
}

func (a *App) initPrivateKey() {
	path := a.config.GetString("seed.private_key_path")

	key, err := seed.LoadPrivateKeyFile(path)
	if err != nil {
		slog.Error("failed to load private key", "path", path, "kind", seed.Kind(err), "error", err)
		os.Exit(1)
	}

	decryptor, err := seed.NewDecryptor(key)
	if err != nil {
		slog.Error("failed to init seed decryptor", "error", err)
		os.Exit(1)
	}
	a.decryptor = decryptor
}

// ping retries fn with exponential backoff, bounded by
// startup.ping_attempts and a 5s timeout per attempt.
func (a *App) ping(name string, fn func(ctx context.Context) error) error {
	attempts := max(a.config.GetInt("startup.ping_attempts"), 1)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(500*time.Millisecond))

	return retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := fn(pingCtx); err != nil {
			slog.Warn("dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// initCache connects to redis when redis.url is set. Redis backs the
// idempotency tracker and, optionally, the seed store.
func (a *App) initCache() {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)
	if err := a.ping("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(rdb, a.config.GetString("idempotency.prefix"))
}

// initDatabase connects to postgres only when the seed store needs it.
func (a *App) initDatabase() {
	if a.selectedStoreDriver() != seedstore.DriverPostgres {
		return
	}

	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	if v := a.config.GetInt32("database.pool.max_conns"); v > 0 {
		config.MaxConns = v
	}
	if v := a.config.GetInt32("database.pool.min_conns"); v > 0 {
		config.MinConns = v
	}
	if v := a.config.GetSecond("database.pool.max_conn_lifetime_seconds"); v > 0 {
		config.MaxConnLifetime = v
	}
	if v := a.config.GetSecond("database.pool.max_conn_idle_seconds"); v > 0 {
		config.MaxConnIdleTime = v
	}

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	if err := a.ping("postgres", pool.Ping); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

// initStorage builds the object storage client used by the object seed store.
func (a *App) initStorage() {
	if a.selectedStoreDriver() != seedstore.DriverObject {
		return
	}

	driver, err := durableObjectDriver(a.config.GetString("seed.store.object.driver"))
	if err != nil {
		slog.Error("invalid object storage driver", "error", err)
		os.Exit(1)
	}

	var gcsClient *gcs.Client
	if driver == storage.DriverGCS {
		if v := a.config.GetBinary("storage.gcs.credentials_json"); len(v) > 0 {
			creds, err := google.CredentialsFromJSON(a.ctx, v, gcs.ScopeReadWrite)
			if err != nil {
				slog.Error("failed to parse gcs credentials json", "error", err)
				os.Exit(1)
			}

			gcsOptions := []option.ClientOption{option.WithCredentials(creds)}
			if v := strings.TrimSpace(a.config.GetString("storage.gcs.endpoint")); v != "" {
				gcsOptions = append(gcsOptions, option.WithEndpoint(v))
			}

			client, err := gcs.NewClient(a.ctx, gcsOptions...)
			if err != nil {
				slog.Error("failed to init gcs client", "error", err)
				os.Exit(1)
			}
			gcsClient = client
		}
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Bucket: strings.TrimSpace(a.config.GetString("seed.store.object.bucket")),
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			Client:          gcsClient,
			CredentialsFile: strings.TrimSpace(a.config.GetString("storage.gcs.credentials_file")),
			Endpoint:        strings.TrimSpace(a.config.GetString("storage.gcs.endpoint")),
		},
		MinIO: storage.MinIOOptions{
			Region:    strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:  strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey: strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey: strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			UseSSL:    a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.storage = stg
}

// errEphemeralObjectStore rejects the in-memory bucket for the seed slot,
// which must survive a restart.
var errEphemeralObjectStore = errors.New("seed.store.object.driver must be s3, gcs or minio")

func durableObjectDriver(name string) (string, error) {
	driver := strings.ToLower(strings.TrimSpace(name))
	if driver == "" || driver == storage.DriverMemory {
		return "", fmt.Errorf("%w, got %q", errEphemeralObjectStore, name)
	}
	return driver, nil
}

func (a *App) selectedStoreDriver() string {
	driver, err := seedstore.ParseDriver(a.config.GetString("seed.store.driver"))
	if err != nil {
		slog.Error("invalid seed store driver", "error", err)
		os.Exit(1)
	}
	return driver
}

func (a *App) initSeedStore() {
	driver := a.selectedStoreDriver()

	var store seedstore.Store
	switch driver {
	case seedstore.DriverFile:
		store = seedstore.NewFile(a.config.GetString("seed.store.file.path"))

	case seedstore.DriverRedis:
		if a.cacheConn == nil {
			slog.Error("seed store redis requires redis.url")
			os.Exit(1)
		}
		store = seedstore.NewRedis(a.cacheConn, a.config.GetString("seed.store.redis.key"))

	case seedstore.DriverPostgres:
		pg, err := seedstore.NewPostgres(a.ctx, a.dbConn)
		if err != nil {
			slog.Error("failed to init postgres seed store", "error", err)
			os.Exit(1)
		}
		store = pg

	case seedstore.DriverSQLite:
		lite, err := seedstore.NewSQLite(a.ctx, a.config.GetString("seed.store.sqlite.path"))
		if err != nil {
			slog.Error("failed to init sqlite seed store", "error", err)
			os.Exit(1)
		}
		store = lite

	case seedstore.DriverObject:
		store = seedstore.NewObject(a.storage, a.config.GetString("seed.store.object.key"))
	}

	slog.Info("seed store ready", "driver", driver)
	a.seedStore = store
	a.storeDriver = driver
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	natsOpts := []nats.Option{}
	if v := a.config.GetSecond("messaging.nats.timeout_seconds"); v > 0 {
		natsOpts = append(natsOpts, nats.Timeout(v))
	}
	if a.config.GetBool("messaging.nats.retry_on_failed_connect") {
		natsOpts = append(natsOpts, nats.RetryOnFailedConnect(true))
	}

	nsqCfg := nsq.NewConfig()
	if v := a.config.GetSecond("messaging.nsq.dial_timeout_seconds"); v > 0 {
		nsqCfg.DialTimeout = v
	}
	if v := a.config.GetSecond("messaging.nsq.write_timeout_seconds"); v > 0 {
		nsqCfg.WriteTimeout = v
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			Addr:   a.config.GetString("messaging.nsq.addr"),
			Config: nsqCfg,
		},
		NATS: messaging.NATSConfig{
			URL:     a.config.GetString("messaging.nats.url"),
			Name:    a.config.GetString("messaging.nats.name"),
			Options: natsOpts,
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      lo.Compact(a.config.GetArray("messaging.kafka.brokers")),
			BatchTimeout: time.Duration(a.config.GetInt("messaging.kafka.batch_timeout_ms")) * time.Millisecond,
		},
		PubSub: messaging.PubSubConfig{
			ProjectID: a.config.GetString("messaging.pubsub.project_id"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID", "Retry-After"},
		MaxAge:         300,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "SeedStore",
			fn: func(context.Context) error {
				return a.seedStore.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				if a.dbConn != nil {
					a.dbConn.Close()
				}
				return nil
			},
		},
		{
			name: "Storage",
			fn: func(context.Context) error {
				if a.storage == nil {
					return nil
				}
				return a.storage.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
