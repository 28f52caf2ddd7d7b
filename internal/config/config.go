// Package config loads service settings from defaults, an optional YAML
// file, USERADMIN_* environment variables and command-line flags, in that
// order of precedence (last wins).
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read into the config. A double
// underscore separates nesting levels: USERADMIN_HTTP__ADDR -> http.addr.
const EnvPrefix = "USERADMIN_"

// Session backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Remote manifest sources.
const (
	RemoteNone  = ""
	RemoteHTTP  = "http"
	RemoteMinio = "minio"
)

// Config holds all service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Postgres PostgresConfig `koanf:"postgres"`
	Sessions SessionsConfig `koanf:"sessions"`
	Redis    RedisConfig    `koanf:"redis"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Remote   RemoteConfig   `koanf:"remote"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type PostgresConfig struct {
	DSN         string `koanf:"dsn"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// SessionsConfig selects where sessions live. "memory" also keeps users
// in memory and needs no external services.
type SessionsConfig struct {
	Backend string `koanf:"backend"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// MongoConfig enables the audit trail when URI is set.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type RemoteConfig struct {
	Source  string      `koanf:"source"`
	URL     string      `koanf:"url"`
	BaseURL string      `koanf:"base_url"`
	Minio   MinioConfig `koanf:"minio"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	Object    string `koanf:"object"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuthConfig struct {
	BcryptCost int `koanf:"bcrypt_cost"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{AutoMigrate: true},
		Sessions: SessionsConfig{Backend: BackendPostgres},
		Redis:    RedisConfig{Addr: "redis:6379"},
		Mongo:    MongoConfig{Database: "useradmin"},
		Remote: RemoteConfig{
			Minio: MinioConfig{
				Endpoint: "minio:9000",
				Bucket:   "ui-bundles",
				Object:   "remoteEntry.json",
				Region:   "us-east-1",
			},
		},
		Log:  LogConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{BcryptCost: 10},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":             "http.addr",
	"postgres-dsn":     "postgres.dsn",
	"sessions-backend": "sessions.backend",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("postgres-dsn", d.Postgres.DSN, "PostgreSQL connection string")
	fs.String("sessions-backend", d.Sessions.Backend, "session backend: postgres, redis or memory")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: json or text")
}

// Load builds the config. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	envKey := func(name string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "__", "."))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Sessions.Backend {
	case BackendPostgres, BackendRedis:
		if c.Postgres.DSN == "" {
			return oops.Code("CONFIG_INVALID").With("key", "postgres.dsn").
				Errorf("postgres.dsn is required for the %s backend", c.Sessions.Backend)
		}
	case BackendMemory:
	default:
		return oops.Code("CONFIG_INVALID").With("key", "sessions.backend").
			Errorf("unknown sessions backend %q", c.Sessions.Backend)
	}

	switch c.Remote.Source {
	case RemoteNone:
	case RemoteHTTP:
		if c.Remote.URL == "" {
			return oops.Code("CONFIG_INVALID").With("key", "remote.url").
				Errorf("remote.url is required for the http remote source")
		}
	case RemoteMinio:
		if c.Remote.Minio.Bucket == "" || c.Remote.Minio.Object == "" {
			return oops.Code("CONFIG_INVALID").With("key", "remote.minio").
				Errorf("remote.minio.bucket and remote.minio.object are required")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("key", "remote.source").
			Errorf("unknown remote source %q", c.Remote.Source)
	}
	return nil
}
