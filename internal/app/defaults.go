package app

import (
	"github.com/shandysiswandi/pkitotp/internal/pkg/seedstore"
	"github.com/shandysiswandi/pkitotp/internal/pkg/storage"
)

// configDefaults lets the service start without a config file.
var configDefaults = map[string]any{
	"app.tz":                                      "UTC",
	"app.server.max_goroutine":                    0,
	"app.server.cors":                             []string{"*"},
	"app.server.http.address":                     ":8080",
	"app.server.http.read_timeout_seconds":        10,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       10,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.rate_limit.rps":                   5,
	"app.server.rate_limit.burst":                 10,
	"app.server.rate_limit.idle_ttl_seconds":      600,
	"app.server.trusted_proxies":                  []string{},

	"instrument.enabled":                 false,
	"instrument.service_name":            "pkitotp",
	"instrument.log_level":               "info",
	"instrument.log_mask_fields":         []string{"encrypted_seed", "code", "secret", "authorization"},
	"instrument.trace_sample_ratio":      1.0,
	"instrument.metric_interval_seconds": 60,

	"seed.private_key_path":    "student_private.pem",
	"seed.store.driver":        seedstore.DriverFile,
	"seed.store.file.path":     seedstore.DefaultFilePath,
	"seed.store.redis.key":     seedstore.DefaultRedisKey,
	"seed.store.sqlite.path":   "./data/seed.db",
	"seed.store.object.key":    seedstore.DefaultObjectKey,
	"seed.store.object.driver": storage.DriverS3,

	"otp.issuer": "pkitotp",

	"codelog.enabled":          true,
	"codelog.interval_seconds": 60,
	"codelog.output_path":      "./cron/last_code.txt",

	"idempotency.prefix":            "pkitotp:idem:",
	"idempotency.state_ttl_seconds": 86400,

	"messaging.driver":                 "none",
	"messaging.nats.name":              "pkitotp",
	"messaging.kafka.batch_timeout_ms": 10,

	"startup.ping_attempts": 5,
}

// envAliases binds keys to the environment names the service has always
// honored.
var envAliases = map[string]string{
	"seed.store.file.path":  "SEED_FILE_PATH",
	"seed.private_key_path": "PRIVATE_KEY_PATH",
}
