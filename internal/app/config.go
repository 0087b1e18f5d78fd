package app

import (
	"errors"
	"time"

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
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// RemoteBaseURL points at the commerce system of record; its timeout is
	// the transport-level bound on probes, logins and reconcile submissions.
	RemoteBaseURL string        `envconfig:"REMOTE_BASE_URL" required:"true"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"15s"`

	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	GuestTTL     time.Duration `envconfig:"GUEST_TTL" default:"720h"`
	SessionIdle  time.Duration `envconfig:"SESSION_IDLE_TTL" default:"12h"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`

	// PGDSN is optional; without it the audit trail and the reconcile
	// idempotency guard are disabled.
	PGDSN string `envconfig:"PG_DSN" default:""`

	WorkerEnabled bool `envconfig:"WORKER_ENABLED" default:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.RemoteBaseURL == "" {
		return nil, errors.New("remote base url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
