package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cwbudde/optima/internal/config"
	"github.com/cwbudde/optima/internal/knapsack"
	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/server"
	"github.com/cwbudde/optima/internal/store"
	"github.com/cwbudde/optima/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	runEngine      string
	runSeed        uint64
	runTimeout     time.Duration
	runCSVDir      string
	runWarmStart   string
	runMetricsAddr string
	runNoSave      bool
	runNoTrace     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve the configured problem once",
	Long: `Runs the configured engine on the configured knapsack instance, prints the
best selection and stores the result under <data-dir>/runs/<run-id>/.`,
	RunE: runSolve,
}

func init() {
	runCmd.Flags().StringVar(&runEngine, "engine", "", "Engine: annealing or genetic (overrides config)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Random seed, 0 for a random one (overrides config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Wall-clock limit for the solve (overrides config)")
	runCmd.Flags().StringVar(&runCSVDir, "csv-dir", "", "Write <problem id>.csv progress files here (overrides config)")
	runCmd.Flags().StringVar(&runWarmStart, "warm-start", "", "Initial solution: none or mayfly (overrides config)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve /metrics and the run API on this address while solving")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist the result")
	runCmd.Flags().BoolVar(&runNoTrace, "no-trace", false, "Do not write trace.jsonl")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine = runEngine
	}
	if flags.Changed("seed") {
		cfg.Seed = runSeed
	}
	if flags.Changed("timeout") {
		cfg.Timeout = runTimeout
	}
	if flags.Changed("csv-dir") {
		cfg.Telemetry.CSVDir = runCSVDir
	}
	if flags.Changed("warm-start") {
		cfg.WarmStart = runWarmStart
	}
	if runNoTrace {
		cfg.Telemetry.Trace = false
	}
	return cfg.Validate()
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	records, err := store.NewFSStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	runs := server.NewRunManager()
	runID := runs.Start(cfg.Engine)
	runLogger := slog.Default().With("run_id", runID)

	reg := prometheus.NewRegistry()
	observers := []observer{
		telemetry.NewProgress[problem, solution](runLogger, cfg.Engine, cfg.Telemetry.LogInterval),
		telemetry.MetricsObserver[problem, solution](telemetry.NewMetrics(reg), cfg.Engine),
		server.Tracker[problem, solution](runs, runID),
	}

	if cfg.Telemetry.CSVDir != "" {
		insight := telemetry.NewInsight[problem, solution](cfg.Telemetry.CSVDir, knapsack.CSVHeader())
		defer insight.Close()
		observers = append(observers, insight)
	}

	if cfg.Telemetry.Trace && !runNoSave {
		tw, err := store.NewTraceWriter(records.BaseDir(), runID, false)
		if err != nil {
			return fmt.Errorf("failed to create trace writer: %w", err)
		}
		defer tw.Close()
		observers = append(observers, telemetry.NewTrace[problem, solution](tw))
	}

	if runMetricsAddr != "" {
		srv := server.NewServer(runMetricsAddr, runs, records, reg)
		go func() {
			if err := srv.Start(); err != nil {
				runLogger.Error("HTTP server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, res, err := solve(ctx, cfg, solveRequest{
		Seed:     seed,
		Observer: opt.Observers(observers...),
		Logger:   runLogger,
	})
	runs.Finish(runID, err)
	if err != nil {
		return err
	}

	if !runNoSave {
		record, err := newRecord(runID, cfg, seed, p, res)
		if err != nil {
			return err
		}
		if err := records.SaveRecord(record); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
	}

	printResult(cmd, runID, seed, p, res)
	return nil
}

func printResult(cmd *cobra.Command, runID string, seed uint64, p problem, res result) {
	out := cmd.OutOrStdout()
	best := res.Best
	items := make([]string, 0, len(best.Picked))
	for _, i := range best.Items() {
		items = append(items, fmt.Sprint(i))
	}

	fmt.Fprintf(out, "Run %s (seed %d)\n", runID, seed)
	fmt.Fprintf(out, "  picked:     %s [%s]\n", best.String(), strings.Join(items, ","))
	fmt.Fprintf(out, "  value:      %g\n", best.Value)
	fmt.Fprintf(out, "  weight:     %g / %g\n", knapsack.TotalWeight(p, best), p.Capacity())
	fmt.Fprintf(out, "  feasible:   %t\n", best.Feasible)
	fmt.Fprintf(out, "  score:      %g -> %g\n", res.InitialScore, res.BestScore)
	fmt.Fprintf(out, "  iterations: %d in %s\n", res.Iterations, res.Elapsed.Round(time.Microsecond))
}
