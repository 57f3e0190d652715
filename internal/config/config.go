// Package config loads service configuration from a YAML file and/or
// environment variables with a predictable priority: an explicit path
// argument wins, then CONFIG_PATH, then environment variables alone.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration of the compliance API.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// HTTPConfig holds the HTTP server network settings.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr returns the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig holds token issuance and validation parameters. The signing
// secret is injected into the verifier at construction and never read
// from anywhere else.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"168h"`
	Issuer        string        `yaml:"issuer" env:"ISSUER" env-default:"compliance-api"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"REVOCATION_SWEEP_INTERVAL" env-default:"10m"`
}

// DBConfig holds the PostgreSQL connection settings. An empty URL runs
// the service on in-memory stores (local development and tests).
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-default:""`
}

// RedisConfig selects the Redis-backed revocation store when set. Redis
// expires revocation entries with key TTLs, so no background sweep runs.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:""`
}

// RateLimitConfig tunes the per-client token bucket.
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second" env:"RATE_LIMIT_PER_SECOND" env-default:"25"`
	Burst     int `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"50"`
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the given path, falling back to
// CONFIG_PATH and finally to environment variables only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	return &cfg, nil
}
