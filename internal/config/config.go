// Package config loads the portal settings from the environment, an optional
// .env file and an optional YAML file. Environment variables use the PORTAL_
// prefix with dots replaced by underscores: api.base_url is PORTAL_API_BASE_URL.
package config

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/hkdf"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Session backends, matching the session store package.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// KeySize is the length of derived keys.
const KeySize = 32

// Config is the validated portal configuration.
type Config struct {
	Env       string `mapstructure:"env" validate:"oneof=development production test"`
	Addr      string `mapstructure:"addr" validate:"required"`
	PublicURL string `mapstructure:"public_url" validate:"required,url"`
	Timezone  string `mapstructure:"timezone" validate:"required"`
	// Secret is the master key other keys are derived from.
	Secret string `mapstructure:"secret" validate:"required_if=Env production,omitempty,min=16"`

	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	DB      DBConfig      `mapstructure:"db"`
	Email   EmailConfig   `mapstructure:"email"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Outbox  OutboxConfig  `mapstructure:"outbox"`

	location *time.Location
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type SessionConfig struct {
	Backend  string `mapstructure:"backend" validate:"oneof=memory sqlite redis"`
	RedisURL string `mapstructure:"redis_url" validate:"required_if=Backend redis,omitempty,url"`
	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type DBConfig struct {
	Path      string        `mapstructure:"path" validate:"required"`
	SlowQuery time.Duration `mapstructure:"slow_query" validate:"gte=0"`
}

// EmailConfig configures Resend delivery. An empty APIKey disables sending.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from" validate:"required"`
	ReplyTo      string `mapstructure:"reply_to" validate:"omitempty,email"`
}

type HTTPConfig struct {
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      int           `mapstructure:"rate_limit" validate:"gte=0"`
	SlowRequest    time.Duration `mapstructure:"slow_request" validate:"gte=0"`
	TrustedOrigins []string      `mapstructure:"trusted_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace" validate:"gt=0"`
}

type OutboxConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

var defaults = map[string]any{
	"env":                    EnvDevelopment,
	"addr":                   ":3000",
	"public_url":             "http://localhost:3000",
	"timezone":               "America/Sao_Paulo",
	"secret":                 "",
	"log.level":              "info",
	"log.format":             "text",
	"api.base_url":           "http://localhost:8080/api/v1",
	"api.timeout":            "10s",
	"session.backend":        BackendSQLite,
	"session.redis_url":      "",
	"session.sweep_interval": "10m",
	"db.path":                "portal.db",
	"db.slow_query":          "100ms",
	"email.resend_api_key":   "",
	"email.from":             "Portal de Eventos <noreply@localhost>",
	"email.reply_to":         "",
	"http.rate_limit":        20,
	"http.slow_request":      "200ms",
	"http.trusted_origins":   []string{},
	"http.shutdown_grace":    "10s",
	"outbox.interval":        "1m",
}

var validate = validator.New()

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then PORTAL_* variables, which win.
// POST: the returned Config passed validation and its timezone resolved
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc
	return cfg, nil
}

// Production reports whether the portal runs in production.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// Location is the timezone event schedules are shown in.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// LogLevel parses Log.Level; unknown values mean info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoginURL is the absolute login page link used in e-mails.
func (c Config) LoginURL() string {
	return c.PublicURL + "/login"
}

// SecureCookies reports whether cookies need the Secure flag.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}

// CSRFKey derives the CSRF authentication key from Secret.
// Without a secret a random key is returned, so tokens do not survive a restart.
// POST: len(key) == KeySize
func (c Config) CSRFKey() ([]byte, error) {
	if c.Secret == "" {
		slog.Warn("config_random_csrf_key", "reason", "PORTAL_SECRET not set; CSRF tokens reset on restart")
		key := make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}
	return DeriveKey(c.Secret, "csrf")
}

// DeriveKey expands secret into a KeySize key bound to purpose.
// Distinct purposes yield independent keys.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("derive key: empty secret")
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("eventportal/"+purpose))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
