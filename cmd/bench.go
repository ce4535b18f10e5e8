package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cwbudde/optima/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchRuns     int
	benchParallel int
	benchEngine   string
	benchSeed     uint64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Solve the configured problem with many seeds",
	Long: `Runs independent solves with seeds seed, seed+1, ... and reports how often the
engine reached the exact optimum (enumerated for instances up to 20 items).`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchRuns, "runs", 100, "Number of seeded solves")
	benchCmd.Flags().IntVar(&benchParallel, "parallel", 4, "Solves running at the same time")
	benchCmd.Flags().StringVar(&benchEngine, "engine", "", "Engine: annealing or genetic (overrides config)")
	benchCmd.Flags().Uint64Var(&benchSeed, "seed", 1, "First seed")

	rootCmd.AddCommand(benchCmd)
}

// benchReport summarizes a batch of seeded solves.
type benchReport struct {
	Runs     int
	Hits     int // solves whose best matched the enumerated optimum
	Feasible int
	Optimum  float64
	Exact    bool // false when the instance was too large to enumerate
	Scores   []float64
	Elapsed  time.Duration
}

func (r benchReport) median() float64 {
	if len(r.Scores) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), r.Scores...)
	sort.Float64s(s)
	return s[len(s)/2]
}

// bench runs the seeded solves on a bounded pool. Each solve is single-threaded and
// owns its engine and generator.
func bench(ctx context.Context, cfg *config.Config, runs, parallel int, firstSeed uint64, logger *slog.Logger) (benchReport, error) {
	if runs <= 0 {
		return benchReport{}, fmt.Errorf("runs must be positive")
	}
	if parallel <= 0 {
		parallel = 1
	}

	p, err := newProblem(cfg)
	if err != nil {
		return benchReport{}, err
	}
	c, _, err := newCriterion(cfg, logger)
	if err != nil {
		return benchReport{}, err
	}

	report := benchReport{Runs: runs, Optimum: math.NaN()}
	optimum, exact := exhaustive(p, c)
	if exact {
		report.Exact = true
		report.Optimum = c.Score(optimum)
	}

	results := make([]result, runs)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < runs; i++ {
		seed := firstSeed + uint64(i)
		g.Go(func() error {
			_, res, err := solve(ctx, cfg, solveRequest{
				Seed:   seed,
				Logger: logger.With("seed", seed),
			})
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchReport{}, err
	}
	report.Elapsed = time.Since(start)

	for _, res := range results {
		report.Scores = append(report.Scores, res.BestScore)
		if res.Best.Feasible {
			report.Feasible++
		}
		if exact && res.Best.Feasible == optimum.Feasible && math.Abs(res.BestScore-report.Optimum) <= 1e-9 {
			report.Hits++
		}
	}
	return report, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine = benchEngine
	}
	cfg.Timeout = 0
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Per-solve engine logs would drown the summary.
	quiet := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if logLevel == "debug" {
		quiet = slog.Default()
	}

	report, err := bench(cmd.Context(), cfg, benchRuns, benchParallel, benchSeed, quiet)
	if err != nil {
		return err
	}

	slog.Info("Benchmark complete",
		"engine", cfg.Engine,
		"runs", report.Runs,
		"hits", report.Hits,
		"feasible", report.Feasible,
		"elapsed", report.Elapsed,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s on %d items, %d runs in %s\n", cfg.Engine, len(cfg.Problem.Weights), report.Runs, report.Elapsed.Round(time.Millisecond))
	if report.Exact {
		fmt.Fprintf(out, "  optimum score: %g\n", report.Optimum)
		fmt.Fprintf(out, "  reached:       %d/%d (%.1f%%)\n", report.Hits, report.Runs, 100*float64(report.Hits)/float64(report.Runs))
	} else {
		fmt.Fprintf(out, "  optimum:       not enumerated (more than %d items)\n", exhaustiveLimit)
	}
	fmt.Fprintf(out, "  feasible:      %d/%d\n", report.Feasible, report.Runs)
	fmt.Fprintf(out, "  median score:  %g\n", report.median())
	return nil
}
