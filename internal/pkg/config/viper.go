package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrConfigType is returned by NewViperFromBytes without a format name.
var ErrConfigType = errors.New("config: type is required")

// envKey turns "seed.store.file.path" into "SEED_STORE_FILE_PATH".
var envKey = strings.NewReplacer(".", "_", "-", "_")

// Viper is the Config backed by spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper reads the file at path. A missing file is tolerated so that
// defaults and environment variables alone can configure the service.
// Unless WithoutWatch is given, edits to the file are picked up live.
func NewViper(path string, opts ...Option) (*Viper, error) {
	o := options{watch: true}
	for _, opt := range opts {
		opt(&o)
	}

	v := newViper(o)
	v.SetConfigFile(path)

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults and environment", "path", path)
		return &Viper{v: v}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if o.watch {
		v.OnConfigChange(func(ev fsnotify.Event) {
			slog.Info("config reloaded", "path", ev.Name, "op", ev.Op.String())
		})
		v.WatchConfig()
	}

	return &Viper{v: v}, nil
}

// NewViperFromBytes reads configuration of the given format ("yaml",
// "json", ...) from memory. The watch option is ignored.
func NewViperFromBytes(configType string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, ErrConfigType
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v := newViper(o)
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	return &Viper{v: v}, nil
}

func newViper(o options) *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(envKey)
	v.AutomaticEnv()

	for key, val := range o.defaults {
		v.SetDefault(key, val)
	}

	// An alias is tried first, then the conventional name.
	for key, alias := range o.envAliases {
		//nolint:errcheck // only fails without a key
		v.BindEnv(key, alias, strings.ToUpper(envKey.Replace(key)))
	}

	return v
}

func (vc *Viper) GetInt(key string) int         { return vc.v.GetInt(key) }
func (vc *Viper) GetInt32(key string) int32     { return vc.v.GetInt32(key) }
func (vc *Viper) GetBool(key string) bool       { return vc.v.GetBool(key) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }
func (vc *Viper) GetString(key string) string   { return vc.v.GetString(key) }
func (vc *Viper) IsSet(key string) bool         { return vc.v.IsSet(key) }

// GetSecond reads an integer number of seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetBinary decodes a standard base64 value; invalid input yields nil.
func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

// GetArray accepts a YAML sequence or a comma separated string. Elements
// are trimmed and blanks dropped.
func (vc *Viper) GetArray(key string) []string {
	var items []string
	switch raw := vc.v.Get(key).(type) {
	case []any:
		items = lo.Map(raw, func(item any, _ int) string { return fmt.Sprint(item) })
	case []string:
		items = raw
	default:
		items = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}

func (vc *Viper) Close() error { return nil }
