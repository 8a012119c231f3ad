// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Fail Fast: Missing secrets abort startup instead of failing requests later.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/waitgate/internal/platform/sec"
)

// # Backend Choices

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Waitgate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreBackend selects where identities and waitlist entries live.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// RateLimitBackend selects per-process or shared (Redis) rate-limit counters.
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`

	// Key-Value Store (Redis), required when RateLimitBackend is redis.
	RedisURL string `env:"REDIS_URL"`

	// Token signing
	JWTSecret      string        `env:"JWT_SECRET,required,unset"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	// Gateway
	APIKey            string   `env:"API_KEY,required,unset"`
	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Rate-limit ceilings
	GeneralRateLimit   int           `env:"RATE_LIMIT_GENERAL"         envDefault:"100"`
	GeneralRateWindow  time.Duration `env:"RATE_LIMIT_GENERAL_WINDOW"  envDefault:"15m"`
	RegisterRateLimit  int           `env:"RATE_LIMIT_REGISTER"        envDefault:"5"`
	RegisterRateWindow time.Duration `env:"RATE_LIMIT_REGISTER_WINDOW" envDefault:"1h"`
	WaitlistRateLimit  int           `env:"RATE_LIMIT_WAITLIST"        envDefault:"10"`
	WaitlistRateWindow time.Duration `env:"RATE_LIMIT_WAITLIST_WINDOW" envDefault:"1h"`
	LoginRateLimit     int           `env:"RATE_LIMIT_LOGIN"           envDefault:"20"`
	LoginRateWindow    time.Duration `env:"RATE_LIMIT_LOGIN_WINDOW"    envDefault:"15m"`
	VerifyRateLimit    int           `env:"RATE_LIMIT_VERIFY"          envDefault:"30"`
	VerifyRateWindow   time.Duration `env:"RATE_LIMIT_VERIFY_WINDOW"   envDefault:"15m"`
	RateLimitMaxKeys   int           `env:"RATE_LIMIT_MAX_KEYS"        envDefault:"100000"`

	// Credential hashing (argon2id)
	HashMemoryKiB   uint32 `env:"HASH_MEMORY_KIB"  envDefault:"65536"`
	HashIterations  uint32 `env:"HASH_ITERATIONS"  envDefault:"1"`
	HashParallelism uint8  `env:"HASH_PARALLELISM" envDefault:"4"`
	HashWorkers     int    `env:"HASH_WORKERS"     envDefault:"0"`

	// Notifications
	NotifyRatePerSecond float64 `env:"NOTIFY_RATE_PER_SECOND" envDefault:"10"`
	NotifyBurst         int     `env:"NOTIFY_BURST"           envDefault:"20"`
	VerifyBaseURL       string  `env:"VERIFY_BASE_URL"        envDefault:"http://localhost:3000/verify"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < sec.MinSecretLength {
		errs = append(errs, fmt.Errorf("config: JWT_SECRET must be at least %d bytes", sec.MinSecretLength))
	}

	if c.APIKey == "" {
		errs = append(errs, errors.New("config: API_KEY must not be empty"))
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres store"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.RateLimitBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("config: REDIS_URL is required for the redis rate limiter"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend))
	}

	return errors.Join(errs...)
}

// HashParams returns the argon2id parameters derived from configuration.
func (c *Config) HashParams() sec.HashParams {
	return sec.HashParams{
		Memory:      c.HashMemoryKiB,
		Iterations:  c.HashIterations,
		Parallelism: c.HashParallelism,
	}
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
