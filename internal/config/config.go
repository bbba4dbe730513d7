// internal/config/config.go
//
// Environment-driven configuration.
// main loads .env with godotenv first; Load then reads the process
// environment, applies defaults and rejects values that cannot work.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/numguess/internal/difficulty"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const devSecret = "dev_secret_change_me"

// Config holds application configuration.
type Config struct {
	Port         string
	LogLevel     string
	LogFormat    string // "json" | "console"
	ClientOrigin string
	Env          string // "development" | "production"

	StoreBackend  string // sqlite | postgres | mysql | redis | memory
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BestScoreKey  string

	SessionSecret string
	SessionCookie string
	SessionTTL    time.Duration

	TickInterval      time.Duration
	IdleTimeout       time.Duration
	DefaultDifficulty difficulty.Key
	TargetSeed        int64 // 0 = crypto/rand
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool { return c.Env == "production" }

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	c := &Config{
		Port:          getEnv("PORT", "5175"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "json")),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Env:           strings.ToLower(getEnv("APP_ENV", "development")),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		DatabaseURL:   getEnv("DATABASE_URL", "./data/numguess.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		BestScoreKey:  getEnv("BEST_SCORE_KEY", "highScore"),
		SessionSecret: getEnv("SESSION_SECRET", devSecret),
		SessionCookie: getEnv("SESSION_COOKIE", "numguess_session"),
	}

	var errs []error
	var err error

	if c.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil || c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB: %q is not a database index", os.Getenv("REDIS_DB")))
	}
	if c.SessionTTL, err = durationEnv("SESSION_TTL", 180*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if c.TickInterval, err = durationEnv("TICK_INTERVAL", time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.IdleTimeout, err = durationEnv("IDLE_TIMEOUT", 30*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if v := os.Getenv("TARGET_SEED"); v != "" {
		if c.TargetSeed, err = strconv.ParseInt(v, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("TARGET_SEED: %q is not an integer", v))
		}
	}

	key, err := difficulty.ParseKey(getEnv("DEFAULT_DIFFICULTY", string(difficulty.Medium)))
	if err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_DIFFICULTY: %w", err))
	}
	c.DefaultDifficulty = key

	switch c.StoreBackend {
	case "sqlite", "postgres", "mysql", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unsupported %q", c.StoreBackend))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: unsupported %q", c.LogFormat))
	}
	if c.Production() && c.SessionSecret == devSecret {
		errs = append(errs, errors.New("SESSION_SECRET: must be set in production"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return c, nil
}

// durationEnv parses a Go duration; a positive value is required.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: %q is not a positive duration", key, v)
	}
	return d, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
