// Package config reads application settings from a YAML file with
// environment overrides.
package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of various types.
// Missing keys yield the zero value (or the registered default).
type Config interface {
	io.Closer

	// GetSecond retrieves the value as a number of seconds.
	GetSecond(key string) time.Duration
	// GetInt retrieves the value as an int.
	GetInt(key string) int
	// GetInt32 retrieves the value as an int32.
	GetInt32(key string) int32
	// GetFloat64 retrieves the value as a float64.
	GetFloat64(key string) float64
	// GetBool retrieves the value as a bool.
	GetBool(key string) bool
	// GetString retrieves the value as a string.
	GetString(key string) string
	// GetBinary retrieves a base64 encoded value as bytes.
	GetBinary(key string) []byte
	// GetArray retrieves a list, either a YAML sequence or
	// <element1>,<element2>,... Blank elements are dropped.
	GetArray(key string) []string
	// IsSet reports whether the key has a value from any source.
	IsSet(key string) bool
}

// Option customizes a Viper config.
type Option func(*options)

type options struct {
	defaults   map[string]any
	envAliases map[string]string
	watch      bool
}

// WithDefaults registers fallback values by key.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithEnvAliases binds keys to environment variables whose names do not
// follow the KEY_PATH convention, e.g. "seed.store.file.path" to
// "SEED_FILE_PATH".
func WithEnvAliases(aliases map[string]string) Option {
	return func(o *options) {
		o.envAliases = aliases
	}
}

// WithoutWatch disables hot reload of the config file.
func WithoutWatch() Option {
	return func(o *options) {
		o.watch = false
	}
}
