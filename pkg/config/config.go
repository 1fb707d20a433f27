package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SERVICECART_APP_ENV" required:"true"`
	Port         string `envconfig:"SERVICECART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SERVICECART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SERVICECART_LOG_WARN_STACK" default:"false"`
	AdminToken   string `envconfig:"SERVICECART_ADMIN_TOKEN"`

	// AdminTokenHash is an argon2id hash of the admin token and takes precedence over AdminToken.
	AdminTokenHash string `envconfig:"SERVICECART_ADMIN_TOKEN_HASH"`

	// CORSOrigins is a comma separated list of origins allowed to call the API from a browser.
	CORSOrigins []string `envconfig:"SERVICECART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AdminEnabled reports whether the admin routes should be mounted.
func (a AppConfig) AdminEnabled() bool {
	return strings.TrimSpace(a.AdminToken) != "" || strings.TrimSpace(a.AdminTokenHash) != ""
}

type DBConfig struct {
	DSN    string `envconfig:"SERVICECART_DB_DSN" required:"true"`
	Driver string `envconfig:"SERVICECART_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"SERVICECART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SERVICECART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SERVICECART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SERVICECART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional; an empty URL and address disables redis entirely.
type RedisConfig struct {
	URL          string        `envconfig:"SERVICECART_REDIS_URL"`
	Address      string        `envconfig:"SERVICECART_REDIS_ADDR"`
	Password     string        `envconfig:"SERVICECART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SERVICECART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SERVICECART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SERVICECART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SERVICECART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SERVICECART_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"SERVICECART_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CartConfig struct {
	Backend        string        `envconfig:"SERVICECART_CART_BACKEND" default:"sql"`
	SlotTTL        time.Duration `envconfig:"SERVICECART_CART_SLOT_TTL" default:"720h"`
	PersistTimeout time.Duration `envconfig:"SERVICECART_CART_PERSIST_TIMEOUT" default:"2s"`
	MaxOpen        int           `envconfig:"SERVICECART_CART_MAX_OPEN" default:"10000"`
	CookieName     string        `envconfig:"SERVICECART_CART_COOKIE_NAME" default:"sc_visitor"`
	CookieSecure   bool          `envconfig:"SERVICECART_CART_COOKIE_SECURE" default:"true"`
}

// NormalizedBackend returns the lower-cased backend name.
func (c CartConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

type RateLimitConfig struct {
	BookingWindow time.Duration `envconfig:"SERVICECART_RATE_LIMIT_BOOKING_WINDOW" default:"10m"`
	BookingLimit  int           `envconfig:"SERVICECART_RATE_LIMIT_BOOKING_LIMIT" default:"5"`

	BookingEmailLimit int `envconfig:"SERVICECART_RATE_LIMIT_BOOKING_EMAIL_LIMIT" default:"3"`

	// IdempotencyTTL is how long a booking response is replayable for its Idempotency-Key.
	IdempotencyTTL time.Duration `envconfig:"SERVICECART_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SERVICECART_AUTO_MIGRATE" default:"false"`
}

func (cfg *Config) validate() error {
	switch cfg.Cart.NormalizedBackend() {
	case CartBackendRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("%s=%s requires %s or %s", EnvCartBackend, CartBackendRedis, EnvRedisURL, EnvRedisAddr)
		}
	case CartBackendSQL, CartBackendMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartBackend, cfg.Cart.Backend)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.DB.Driver)) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, cfg.DB.Driver)
	}
	return nil
}
