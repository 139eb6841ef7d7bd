package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/config"
	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/store/pgstore"
	"github.com/brfoley76/PromptingHumanAgent/internal/store/redisstore"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

// setupLogger builds the process logger from the configured level and
// format. Logs go to stderr so command output stays machine-readable.
func setupLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// openStore connects to the configured backend. The event log is nil for
// backends that do not keep one.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, store.EventLog, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		m := store.NewMemory()
		return m, m, nil
	case config.BackendSQLite:
		s, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
}

// newService opens the store, builds dependencies, and returns the engine
// together with a func that releases the store.
func newService(cmd *cobra.Command) (*engine.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := setupLogger(cfg, os.Stderr)
	slog.SetDefault(log)

	graph := curriculum.New()
	if cfg.CurriculumPath != "" {
		if graph, err = curriculum.LoadFile(cfg.CurriculumPath); err != nil {
			return nil, nil, fmt.Errorf("load curriculum: %w", err)
		}
	}

	updater, err := proficiency.NewUpdater(cfg.Updater)
	if err != nil {
		return nil, nil, err
	}
	selector, err := tier.NewSelector(cfg.Tier)
	if err != nil {
		return nil, nil, err
	}

	var overrides []tuning.ActivitySpec
	if cfg.TuningPath != "" {
		if overrides, err = tuning.LoadSpecsFile(cfg.TuningPath, tuning.DefaultSpecs()); err != nil {
			return nil, nil, fmt.Errorf("load tuning config: %w", err)
		}
	}
	gen, err := tuning.NewGenerator(cfg.Tier, overrides...)
	if err != nil {
		return nil, nil, err
	}

	st, events, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	svc, err := engine.New(engine.Options{
		Store:            st,
		Curriculum:       graph,
		Updater:          updater,
		Selector:         selector,
		Generator:        gen,
		Events:           events,
		Retry:            cfg.Retry,
		TuningLevel:      cfg.TuningLevel,
		BatchConcurrency: cfg.BatchConcurrency,
		Logger:           log,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	log.Debug("engine ready", "backend", cfg.Store.Backend, "tuning_level", string(cfg.TuningLevel))

	closeFn := func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
	}
	return svc, closeFn, nil
}
