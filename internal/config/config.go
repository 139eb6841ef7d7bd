// Package config assembles the service configuration from defaults, an
// optional .env file and PHA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds everything needed to build an engine.
type Config struct {
	Store   StoreConfig
	Updater proficiency.UpdaterConfig
	Tier    tier.Config
	Retry   engine.RetryConfig

	// TuningLevel is the level whose tier drives activity settings.
	TuningLevel proficiency.Level
	// BatchConcurrency caps the students imported in parallel.
	BatchConcurrency int

	CurriculumPath string // Optional curriculum JSON.
	TuningPath     string // Optional tuning range JSON.

	LogLevel  string // debug, info, warn, error
	LogFormat string // text or json
}

// StoreConfig selects and locates the store backend.
type StoreConfig struct {
	// Backend is one of memory, sqlite, redis or postgres.
	Backend     string
	SQLitePath  string
	RedisURL    string
	RedisPrefix string
	PostgresURL string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendSQLite,
			RedisURL:    "redis://localhost:6379/0",
			RedisPrefix: "pha:",
		},
		Updater:          proficiency.DefaultUpdaterConfig(),
		Tier:             tier.DefaultConfig(),
		Retry:            engine.DefaultRetryConfig(),
		TuningLevel:      proficiency.LevelModule,
		BatchConcurrency: 4,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// FromEnv loads .env from the working directory when present and builds a
// Config from PHA_* variables, falling back to defaults for unset values.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	p := envParser{}

	p.str("PHA_STORE", &cfg.Store.Backend)
	p.str("PHA_DB", &cfg.Store.SQLitePath)
	p.str("PHA_REDIS_URL", &cfg.Store.RedisURL)
	p.str("PHA_REDIS_PREFIX", &cfg.Store.RedisPrefix)
	p.str("PHA_POSTGRES_URL", &cfg.Store.PostgresURL)

	p.float("PHA_PRIOR_ALPHA", &cfg.Updater.Prior.Alpha)
	p.float("PHA_PRIOR_BETA", &cfg.Updater.Prior.Beta)
	p.float("PHA_DECAY_FACTOR", &cfg.Updater.DecayFactor)
	p.float("PHA_FORGETTING_RATE", &cfg.Updater.ForgettingRate)

	p.float("PHA_LOW_CONFIDENCE", &cfg.Tier.LowConfidence)
	p.float("PHA_LOW_CUT", &cfg.Tier.LowCut)
	p.float("PHA_HIGH_CUT", &cfg.Tier.HighCut)
	p.float("PHA_HYSTERESIS", &cfg.Tier.Hysteresis)

	p.int("PHA_RETRY_ATTEMPTS", &cfg.Retry.MaxAttempts)
	p.duration("PHA_RETRY_INITIAL_WAIT", &cfg.Retry.InitialWait)
	p.duration("PHA_RETRY_MAX_WAIT", &cfg.Retry.MaxWait)

	if v := os.Getenv("PHA_TUNING_LEVEL"); v != "" {
		cfg.TuningLevel = proficiency.Level(v)
	}
	p.int("PHA_BATCH_CONCURRENCY", &cfg.BatchConcurrency)

	p.str("PHA_CURRICULUM", &cfg.CurriculumPath)
	p.str("PHA_TUNING_CONFIG", &cfg.TuningPath)
	p.str("PHA_LOG_LEVEL", &cfg.LogLevel)
	p.str("PHA_LOG_FORMAT", &cfg.LogFormat)

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// envParser reads typed variables and collects parse errors.
type envParser struct {
	errs []error
}

func (p *envParser) str(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (p *envParser) float(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (p *envParser) int(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *envParser) duration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

// Validate checks the store selection and every numeric setting.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("PHA_REDIS_URL is required for the redis store")
		}
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("PHA_POSTGRES_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if err := c.Updater.Validate(); err != nil {
		return err
	}
	if err := c.Tier.Validate(); err != nil {
		return fmt.Errorf("tier: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialWait < 0 || c.Retry.MaxWait < c.Retry.InitialWait {
		return fmt.Errorf("retry waits must satisfy 0 <= initial <= max, got %v, %v", c.Retry.InitialWait, c.Retry.MaxWait)
	}
	if _, err := proficiency.ParseLevel(string(c.TuningLevel)); err != nil {
		return fmt.Errorf("tuning level: %w", err)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch concurrency must be >= 1, got %d", c.BatchConcurrency)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	return nil
}
