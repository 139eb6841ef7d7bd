package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PHA_STORE", "redis")
	t.Setenv("PHA_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("PHA_PRIOR_ALPHA", "2")
	t.Setenv("PHA_HIGH_CUT", "0.9")
	t.Setenv("PHA_RETRY_ATTEMPTS", "7")
	t.Setenv("PHA_RETRY_MAX_WAIT", "1s")
	t.Setenv("PHA_TUNING_LEVEL", "domain")
	t.Setenv("PHA_LOG_FORMAT", "json")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.RedisURL != "redis://cache:6379/2" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Updater.Prior.Alpha != 2 || cfg.Updater.Prior.Beta != 1 {
		t.Errorf("Prior = %+v, want (2, 1)", cfg.Updater.Prior)
	}
	if cfg.Tier.HighCut != 0.9 || cfg.Tier.LowCut != 0.65 {
		t.Errorf("Tier = %+v", cfg.Tier)
	}
	if cfg.Retry.MaxAttempts != 7 || cfg.Retry.MaxWait != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.TuningLevel != proficiency.LevelDomain {
		t.Errorf("TuningLevel = %q, want domain", cfg.TuningLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFromEnvDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PHA_STORE=memory\nPHA_BATCH_CONCURRENCY=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PHA_STORE")
		os.Unsetenv("PHA_BATCH_CONCURRENCY")
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.BatchConcurrency != 9 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnvParseErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PHA_LOW_CUT", "low")
	t.Setenv("PHA_RETRY_INITIAL_WAIT", "soon")

	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv should fail on malformed values")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.RedisURL = "" }},
		{"zero prior", func(c *Config) { c.Updater.Prior.Alpha = 0 }},
		{"decay above one", func(c *Config) { c.Updater.DecayFactor = 1.5 }},
		{"cuts inverted", func(c *Config) { c.Tier.LowCut = 0.9 }},
		{"no retries", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"max wait below initial", func(c *Config) { c.Retry.MaxWait = time.Microsecond }},
		{"bad tuning level", func(c *Config) { c.TuningLevel = "course" }},
		{"zero concurrency", func(c *Config) { c.BatchConcurrency = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
