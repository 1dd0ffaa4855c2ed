package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"valuta-service/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig     `envconfig:"SERVER"`
	Provider   ProviderConfig   `envconfig:"PROVIDER"`
	Resilience ResilienceConfig `envconfig:"RESILIENCE"`
	Cache      CacheConfig      `envconfig:"CACHE"`
	Currency   CurrencyConfig   `envconfig:"CURRENCY"`
	Auth       AuthConfig       `envconfig:"AUTH"`
	RateLimit  RateLimitConfig  `envconfig:"RATE_LIMIT"`
	Log        LogConfig        `envconfig:"LOG"`
}

type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type ProviderConfig struct {
	Default        string        `envconfig:"DEFAULT" default:"frankfurter"`
	FrankfurterURL string        `envconfig:"FRANKFURTER_URL" default:"https://api.frankfurter.app"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

type ResilienceConfig struct {
	MaxRetries       uint64        `envconfig:"MAX_RETRIES" default:"3"`
	BaseDelay        time.Duration `envconfig:"BASE_DELAY" default:"1s"`
	FailureThreshold uint32        `envconfig:"FAILURE_THRESHOLD" default:"5"`
	BreakDuration    time.Duration `envconfig:"BREAK_DURATION" default:"1m"`
}

type CacheConfig struct {
	LatestTTL       time.Duration `envconfig:"LATEST_TTL" default:"1h"`
	ConversionTTL   time.Duration `envconfig:"CONVERSION_TTL" default:"1h"`
	HistoricalTTL   time.Duration `envconfig:"HISTORICAL_TTL" default:"24h"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"10m"`
}

type CurrencyConfig struct {
	Restricted      []string `envconfig:"RESTRICTED" default:"TRY,PLN,THB,MXN"`
	DefaultPageSize int      `envconfig:"DEFAULT_PAGE_SIZE" default:"10"`
}

type AuthConfig struct {
	Secret   string        `envconfig:"JWT_SECRET"`
	Issuer   string        `envconfig:"JWT_ISSUER" default:"valuta-service"`
	Audience string        `envconfig:"JWT_AUDIENCE" default:"valuta-clients"`
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	Users    Users         `envconfig:"USERS"`
}

type RateLimitConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Requests int           `envconfig:"REQUESTS" default:"100"`
	Window   time.Duration `envconfig:"WINDOW" default:"10m"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// User is one login profile. Password holds either a bcrypt hash or a
// plain secret.
type User struct {
	Username string
	Password string
	Roles    []string
}

// Users decodes "name:password:Role|Role" entries separated by commas.
type Users []User

func (u *Users) Decode(value string) error {
	var users Users
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid user entry %q, want name:password:Role|Role", raw)
		}

		var roles []string
		for _, role := range strings.Split(parts[2], "|") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return fmt.Errorf("user %q has no roles", parts[0])
		}

		users = append(users, User{Username: parts[0], Password: parts[1], Roles: roles})
	}

	*u = users
	return nil
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig(log *logger.Logger, envFilePath ...string) (*Config, error) {
	var err error
	if len(envFilePath) > 0 && envFilePath[0] != "" {
		err = godotenv.Load(envFilePath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		log.Warn("No .env file found or specified, using system environment variables")
	} else {
		log.Info("Environment variables loaded from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("Config loaded",
		"port", cfg.Server.Port,
		"provider", cfg.Provider.Default,
		"provider_url", cfg.Provider.FrankfurterURL,
		"restricted", cfg.Currency.Restricted,
		"users", len(cfg.Auth.Users),
		"rate_limit_requests", cfg.RateLimit.Requests,
		"rate_limit_window", cfg.RateLimit.Window,
	)

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}

	durations := map[string]time.Duration{
		"SERVER_READ_TIMEOUT":       c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":      c.Server.WriteTimeout,
		"PROVIDER_TIMEOUT":          c.Provider.Timeout,
		"RESILIENCE_BASE_DELAY":     c.Resilience.BaseDelay,
		"RESILIENCE_BREAK_DURATION": c.Resilience.BreakDuration,
		"CACHE_LATEST_TTL":          c.Cache.LatestTTL,
		"CACHE_CONVERSION_TTL":      c.Cache.ConversionTTL,
		"CACHE_HISTORICAL_TTL":      c.Cache.HistoricalTTL,
		"CACHE_CLEANUP_INTERVAL":    c.Cache.CleanupInterval,
		"AUTH_TOKEN_TTL":            c.Auth.TokenTTL,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.Resilience.FailureThreshold == 0 {
		errs = append(errs, errors.New("RESILIENCE_FAILURE_THRESHOLD must be positive"))
	}
	if c.Currency.DefaultPageSize < 1 {
		errs = append(errs, errors.New("CURRENCY_DEFAULT_PAGE_SIZE must be positive"))
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
