// Package config loads bookhub settings.
//
// Values resolve in this order, later sources winning:
//
//	defaults < YAML file (-config or BOOKHUB_CONFIG) < environment < flags
//
// A .env file in the working directory is loaded into the environment first;
// variables already set in the process are not overwritten.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	FeedAddr string `yaml:"feed_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	DBPath   string `yaml:"db_path"`

	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Upsert    UpsertConfig    `yaml:"upsert"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTDuration time.Duration `yaml:"jwt_ttl"`
	CookieName  string        `yaml:"cookie_name"`
}

type CatalogConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

// UpsertConfig is the retry policy of the book cache upsert.
type UpsertConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// RateLimitConfig limits /api/auth/* per client IP.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type CORSConfig struct {
	TrustedOrigins []string `yaml:"trusted_origins"`
}

func Default() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		HTTPAddr: ":8080",
		FeedAddr: ":7070",
		GRPCAddr: ":9090",
		DBPath:   "data/bookhub.db",
		Auth: AuthConfig{
			JWTSecret:   devSecret,
			JWTIssuer:   "bookhub",
			JWTDuration: 7 * 24 * time.Hour,
			CookieName:  "token",
		},
		Catalog: CatalogConfig{
			BaseURL: "https://www.googleapis.com/books/v1/volumes",
			Timeout: 10 * time.Second,
			RPS:     5,
			Burst:   10,
		},
		Upsert: UpsertConfig{
			Attempts: 3,
			Delay:    100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     2,
			Burst:   10,
		},
		CORS: CORSConfig{
			TrustedOrigins: []string{"http://localhost:3000"},
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load resolves the configuration for a process started with args
// (os.Args[1:]).
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	// First pass only finds -config; the rest is parsed again on top of
	// file and environment values.
	scratch := cfg
	pre := newFlagSet(&scratch)
	pre.SetOutput(io.Discard)
	configPath := pre.String("config", os.Getenv("BOOKHUB_CONFIG"), "")
	if err := pre.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	fset := newFlagSet(&cfg)
	fset.String("config", *configPath, "Path to a YAML config file")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet("bookhub", flag.ContinueOnError)

	set.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development|staging|production)")
	set.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")
	set.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	set.StringVar(&cfg.FeedAddr, "feed-addr", cfg.FeedAddr, "Activity feed TCP listen address")
	set.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address")
	set.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")

	set.StringVar(&cfg.Auth.JWTSecret, "jwt-secret", cfg.Auth.JWTSecret, "JWT signing secret (prefer env)")
	set.StringVar(&cfg.Auth.JWTIssuer, "jwt-issuer", cfg.Auth.JWTIssuer, "JWT issuer")
	set.DurationVar(&cfg.Auth.JWTDuration, "jwt-ttl", cfg.Auth.JWTDuration, "Session token lifetime")

	set.StringVar(&cfg.Catalog.BaseURL, "catalog-url", cfg.Catalog.BaseURL, "Catalog volumes endpoint")
	set.StringVar(&cfg.Catalog.APIKey, "catalog-key", cfg.Catalog.APIKey, "Catalog API key")
	set.DurationVar(&cfg.Catalog.Timeout, "catalog-timeout", cfg.Catalog.Timeout, "Catalog request timeout")
	set.Float64Var(&cfg.Catalog.RPS, "catalog-rps", cfg.Catalog.RPS, "Outbound catalog requests per second")

	set.IntVar(&cfg.Upsert.Attempts, "upsert-attempts", cfg.Upsert.Attempts, "Book upsert attempts")
	set.DurationVar(&cfg.Upsert.Delay, "upsert-delay", cfg.Upsert.Delay, "Pause between book upsert attempts")

	set.BoolVar(&cfg.RateLimit.Enabled, "limiter-enabled", cfg.RateLimit.Enabled, "Enable the auth rate limiter")
	set.Float64Var(&cfg.RateLimit.RPS, "limiter-rps", cfg.RateLimit.RPS, "Auth requests per second per IP")
	set.IntVar(&cfg.RateLimit.Burst, "limiter-burst", cfg.RateLimit.Burst, "Auth request burst per IP")

	set.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(s string) error {
		cfg.CORS.TrustedOrigins = strings.Fields(s)
		return nil
	})

	return set
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("BOOKHUB_ENV", &c.Env)
	str("BOOKHUB_LOG_LEVEL", &c.LogLevel)
	str("BOOKHUB_HTTP_ADDR", &c.HTTPAddr)
	str("BOOKHUB_FEED_ADDR", &c.FeedAddr)
	str("BOOKHUB_GRPC_ADDR", &c.GRPCAddr)
	str("BOOKHUB_DB_PATH", &c.DBPath)

	str("BOOKHUB_JWT_SECRET", &c.Auth.JWTSecret)
	str("BOOKHUB_JWT_ISSUER", &c.Auth.JWTIssuer)
	dur("BOOKHUB_JWT_TTL", &c.Auth.JWTDuration)

	str("BOOKHUB_CATALOG_URL", &c.Catalog.BaseURL)
	str("BOOKHUB_CATALOG_API_KEY", &c.Catalog.APIKey)
	dur("BOOKHUB_CATALOG_TIMEOUT", &c.Catalog.Timeout)
	float("BOOKHUB_CATALOG_RPS", &c.Catalog.RPS)

	num("BOOKHUB_UPSERT_ATTEMPTS", &c.Upsert.Attempts)
	dur("BOOKHUB_UPSERT_DELAY", &c.Upsert.Delay)

	float("BOOKHUB_LIMITER_RPS", &c.RateLimit.RPS)
	num("BOOKHUB_LIMITER_BURST", &c.RateLimit.Burst)

	if v, ok := os.LookupEnv("BOOKHUB_CORS_TRUSTED_ORIGINS"); ok && v != "" {
		c.CORS.TrustedOrigins = strings.Fields(v)
	}

	return errors.Join(errs...)
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("env must be development, staging or production, got %q", c.Env))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret required"))
	}
	if c.IsProduction() && c.Auth.JWTSecret == devSecret {
		errs = append(errs, errors.New("jwt secret must be set in production"))
	}
	if c.Auth.JWTDuration <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if c.Upsert.Attempts < 1 {
		errs = append(errs, errors.New("upsert attempts must be at least 1"))
	}
	if c.Upsert.Delay < 0 {
		errs = append(errs, errors.New("upsert delay must not be negative"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path required"))
	}
	return errors.Join(errs...)
}
