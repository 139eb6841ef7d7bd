package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/config"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "proficiency",
	Short: "Adaptive proficiency estimation and difficulty tuning",
	Long: `proficiency tracks per-student mastery at item, module and domain level
from graded attempts and turns it into difficulty tiers and activity settings.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides PHA_DB env var)")
	pf.String("backend", "", "Store backend: memory, sqlite, redis or postgres (overrides PHA_STORE)")
	pf.String("curriculum", "", "Curriculum JSON file (overrides PHA_CURRICULUM)")
	pf.String("tuning-config", "", "Tuning range JSON file (overrides PHA_TUNING_CONFIG)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(curriculumCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the configuration from the environment and applies
// persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if v, _ := flags.GetString(name); v != "" {
			*dst = v
		}
	}
	override("backend", &cfg.Store.Backend)
	override("curriculum", &cfg.CurriculumPath)
	override("tuning-config", &cfg.TuningPath)
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)

	if cfg.Store.Backend == config.BackendSQLite {
		p, err := resolveDBPath(cmd, cfg.Store.SQLitePath)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Store.SQLitePath = p
	}

	return cfg, cfg.Validate()
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then PHA_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, fromEnv string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if fromEnv != "" {
		return fromEnv, store.EnsureDir(fromEnv)
	}
	return store.DefaultDBPath()
}
