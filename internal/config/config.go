// Package config loads the web front configuration.
//
// Sources, highest priority first:
//  1. an explicit --config path;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment only.
//
// Environment variables always override file values.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTP         HTTPConfig         `yaml:"http"`
	API          APIConfig          `yaml:"api"`
	Storage      StorageConfig      `yaml:"storage"`
	Cookies      CookieConfig       `yaml:"cookies"`
	Guard        GuardConfig        `yaml:"guard"`
	Registration RegistrationConfig `yaml:"registration"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

// HTTPConfig is the public web server
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites them.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// APIConfig points at the platform REST API
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_URL" env-default:"http://localhost:8000/api"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

// StorageConfig selects the client storage backend: memory, redis or postgres.
type StorageConfig struct {
	Driver      string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"web:store:"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	TTL         time.Duration `yaml:"ttl" env:"STORAGE_TTL" env-default:"720h"`
	// PruneEvery is how often stale postgres rows are deleted
	PruneEvery time.Duration `yaml:"prune_every" env:"STORAGE_PRUNE_EVERY" env-default:"1h"`
}

type CookieConfig struct {
	AccessTTL  time.Duration `yaml:"access_ttl" env:"COOKIE_ACCESS_TTL" env-default:"24h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"COOKIE_REFRESH_TTL" env-default:"720h"`
	Secure     bool          `yaml:"secure" env:"COOKIE_SECURE" env-default:"false"`
}

// GuardConfig lists the path prefixes the edge guard protects
type GuardConfig struct {
	Prefixes []string `yaml:"prefixes" env:"GUARD_PREFIXES" env-separator:"," env-default:"/dashboard"`
}

type RegistrationConfig struct {
	ResendCooldown time.Duration `yaml:"resend_cooldown" env:"OTP_RESEND_COOLDOWN" env-default:"60s"`
	OTPTTL         time.Duration `yaml:"otp_ttl" env:"OTP_DEFAULT_TTL" env-default:"5m"`
}

// RateLimitConfig bounds form posts per client address and OTP sends per phone.
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"10m"`
	FormPosts   int           `yaml:"form_posts" env:"RATE_LIMIT_FORM_POSTS" env-default:"30"`
	OTPPerPhone int           `yaml:"otp_per_phone" env:"RATE_LIMIT_OTP_PER_PHONE" env-default:"5"`
}

// MustLoad panics when Load fails.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, cfg.validate()
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage driver redis needs REDIS_URL")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage driver postgres needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)

	if c.Cookies.AccessTTL >= c.Cookies.RefreshTTL {
		return fmt.Errorf("access cookie ttl %s must be shorter than refresh cookie ttl %s",
			c.Cookies.AccessTTL, c.Cookies.RefreshTTL)
	}
	return nil
}
