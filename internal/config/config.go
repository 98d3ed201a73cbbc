package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSessionSecretLength = 32

// Config is the explicit process configuration, parsed once at startup and
// passed down by constructor injection. There is no ambient global state:
// the signing secret reaches the token service only through this struct.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"flightgate"`
	JWTAudience    string        `env:"JWT_AUDIENCE" envDefault:"flightgate-api"`
	SessionSecret  string        `env:"SESSION_SECRET,required"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	PendingAuthTTL time.Duration `env:"PENDING_AUTH_TTL" envDefault:"5m"`

	CSRFProtectedGETPrefixes []string `env:"CSRF_PROTECTED_GET_PREFIXES" envSeparator:","`
	CSRFBypassPrefixes       []string `env:"CSRF_BYPASS_PREFIXES" envSeparator:"," envDefault:"/api/v1/auth/login,/api/v1/auth/mfa/verify"`

	AbuseFreeAttempts int           `env:"ABUSE_FREE_ATTEMPTS" envDefault:"3"`
	AbuseBaseDelay    time.Duration `env:"ABUSE_BASE_DELAY" envDefault:"2s"`
	AbuseMultiplier   float64       `env:"ABUSE_MULTIPLIER" envDefault:"2"`
	AbuseMaxDelay     time.Duration `env:"ABUSE_MAX_DELAY" envDefault:"5m"`
	AbuseResetWindow  time.Duration `env:"ABUSE_RESET_WINDOW" envDefault:"15m"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	OTELServiceName           string `env:"OTEL_SERVICE_NAME" envDefault:"flightgate"`
	OTELEnvironment           string `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OTELExporterOTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsEnabled        bool   `env:"OTEL_METRICS_ENABLED" envDefault:"false"`
	OTELTracesEnabled         bool   `env:"OTEL_TRACES_ENABLED" envDefault:"false"`
	OTELLogsEnabled           bool   `env:"OTEL_LOGS_ENABLED" envDefault:"false"`
	OTELInstrumentHTTPHandler bool   `env:"OTEL_INSTRUMENT_HTTP_HANDLER" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.PendingAuthTTL <= 0 {
		return fmt.Errorf("PENDING_AUTH_TTL must be positive")
	}
	return nil
}

// Production controls cookie security attributes among other things.
func (c *Config) Production() bool {
	return c.Env == "production"
}
