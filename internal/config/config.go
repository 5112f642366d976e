package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "WalletLedger"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultStoreTimeout   = 5 * time.Second
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	LogFormat          string
	DatabaseURL        string
	DatabaseMaxConns   int32
	RedisURL           string
	StoreTimeout       time.Duration
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int
	DevWallets         []uuid.UUID
}

// Load reads an optional .env file, then the environment, and populates a
// Config instance.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	maxConns, err := intEnv("DATABASE_MAX_CONNS")
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseMaxConns = int32(maxConns)

	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE"); err != nil {
		return Config{}, err
	}

	if cfg.DevWallets, err = parseWallets(os.Getenv("DEV_WALLETS")); err != nil {
		return Config{}, err
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDev reports whether the in-memory store may stand in for PostgreSQL.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as an integer, falling back to KEY as a Go
// duration string.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func parseWallets(v string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid DEV_WALLETS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
