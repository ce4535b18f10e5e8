package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/optima/internal/config"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	dataDir    string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "optima",
	Short: "Metaheuristic search with simulated annealing and genetic algorithms",
	Long: `Optima solves combinatorial problems with simulated annealing or a
generational genetic algorithm. The bundled workload is 0/1 knapsack.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Base directory for run results (overrides config)")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads --config and applies the persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// resultsDir returns the data directory without requiring a valid run config.
func resultsDir() string {
	if dataDir != "" {
		return dataDir
	}
	if cfg, err := loadConfig(); err == nil {
		return cfg.DataDir
	}
	return config.Default().DataDir
}
