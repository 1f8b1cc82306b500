package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional; without it login sessions are not audited.
	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"portal_session"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:5000/api"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	StatsCacheTTL  time.Duration `envconfig:"STATS_CACHE_TTL" default:"30s"`

	RateLimitPerMinute      int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	LoginRateLimitPerMinute int `envconfig:"LOGIN_RATE_LIMIT_PER_MINUTE" default:"10"`

	GuardCompatDeadEnd bool `envconfig:"GUARD_COMPAT_DEAD_END" default:"false"`

	SessionPruneCron      string        `envconfig:"SESSION_PRUNE_CRON" default:"0 3 * * *"`
	SessionAuditRetention time.Duration `envconfig:"SESSION_AUDIT_RETENTION" default:"168h"`
}

// LoadConfig reads configuration from an optional .env file and the environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.RateLimitPerMinute <= 0 || c.LoginRateLimitPerMinute <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
