package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `envconfig:"DATABASE"`
	Source   SourceConfig   `envconfig:"SOURCE"`
	Schedule ScheduleConfig `envconfig:"SCHEDULE"`
	GRPC     GRPCConfig     `envconfig:"GRPC"`
	Auth     AuthConfig     `envconfig:"JWT"`
	Metrics  MetricsConfig  `envconfig:"METRICS"`
	Tracing  TracingConfig  `envconfig:"TRACING"`
	LogLevel string         `envconfig:"LOG_LEVEL" default:"info"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string `envconfig:"DRIVER"` // "sqlite3" or "pgx"; derived from URL when empty
	URL    string `envconfig:"URL" default:"app.db"`
}

// SourceConfig lists the upstream endpoints.
type SourceConfig struct {
	UsersURL      string        `envconfig:"USERS_URL" default:"https://jsonplaceholder.typicode.com/users"`
	AddressURL    string        `envconfig:"ADDRESS_URL" default:"https://random-data-api.com/api/address/random_address"`
	CreditCardURL string        `envconfig:"CREDIT_CARD_URL" default:"https://random-data-api.com/api/business_credit_card/random_card"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// ScheduleConfig contains job intervals and the retry policy.
type ScheduleConfig struct {
	FetchUsersInterval       time.Duration `envconfig:"FETCH_USERS_INTERVAL" default:"300s"`
	FetchAddressesInterval   time.Duration `envconfig:"FETCH_ADDRESSES_INTERVAL" default:"600s"`
	FetchCreditCardsInterval time.Duration `envconfig:"FETCH_CREDIT_CARDS_INTERVAL" default:"900s"`
	MaxRetries               int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay               time.Duration `envconfig:"RETRY_DELAY" default:"60s"`
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `envconfig:"ADDRESS" default:":50051"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `envconfig:"SECRET"` // JWT_SECRET
}

type MetricsConfig struct {
	Address string `envconfig:"ADDRESS" default:":9090"`
}

type TracingConfig struct {
	CollectorHost string `envconfig:"COLLECTOR_HOST"` // empty disables export
}

const devJWTSecret = "dev-secret-change-me"

// Load reads an optional .env file, then the environment. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.Database.URL = strings.TrimPrefix(cfg.Database.URL, "sqlite:///")
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverFor(cfg.Database.URL)
	}
	if cfg.Schedule.MaxRetries < 0 {
		return nil, fmt.Errorf("SCHEDULE_MAX_RETRIES must not be negative, got %d", cfg.Schedule.MaxRetries)
	}
	return &cfg, nil
}

// DriverFor picks the database/sql driver name for a connection URL.
func DriverFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "pgx"
	}
	return "sqlite3"
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s %s, gRPC: %s, Metrics: %s, Auth: *** (masked) ***}",
		c.Database.Driver, maskURL(c.Database.URL), c.GRPC.Address, c.Metrics.Address)
}

// maskURL hides the password of a user:password@host URL.
func maskURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 {
		return u
	}
	creds := u[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		creds = creds[:i] + ":***"
	}
	return u[:scheme+3] + creds + u[at:]
}
