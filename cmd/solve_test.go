package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cwbudde/optima/internal/config"
	"github.com/cwbudde/optima/internal/genetic"
	"github.com/cwbudde/optima/internal/knapsack"
	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/store"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T, engine string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Engine = engine
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSolveReachesOptimum(t *testing.T) {
	for _, engine := range []string{store.EngineAnnealing, store.EngineGenetic} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t, engine)
			hits := 0
			for seed := uint64(1); seed <= 5; seed++ {
				p, res, err := solve(context.Background(), cfg, solveRequest{Seed: seed, Logger: quiet})
				require.NoError(t, err)
				assert.Equal(t, 7, p.Len())
				if res.Best.Feasible && res.BestScore == 10 {
					assert.Equal(t, []int{0, 1, 2}, res.Best.Items(), "seed %d", seed)
					hits++
				}
			}
			assert.GreaterOrEqual(t, hits, 4)
		})
	}
}

func TestSolveIsDeterministicPerSeed(t *testing.T) {
	for _, engine := range []string{store.EngineAnnealing, store.EngineGenetic} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t, engine)
			cfg.Annealing.MaxSteps = 50
			cfg.Genetic.Generations = 3

			_, a, err := solve(context.Background(), cfg, solveRequest{Seed: 42, Logger: quiet})
			require.NoError(t, err)
			_, b, err := solve(context.Background(), cfg, solveRequest{Seed: 42, Logger: quiet})
			require.NoError(t, err)

			assert.Equal(t, a.Best.Picked, b.Best.Picked)
			assert.Equal(t, a.InitialScore, b.InitialScore)
			assert.Equal(t, a.Iterations, b.Iterations)
		})
	}
}

func TestSolveNotifiesObserver(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	cfg.Annealing.MaxSteps = 25

	calls, terminal := 0, 0
	obs := opt.ObserverFunc[problem, solution](func(s opt.Snapshot[problem, solution]) error {
		if s.Terminal {
			terminal++
		} else {
			calls++
		}
		return nil
	})

	_, res, err := solve(context.Background(), cfg, solveRequest{Seed: 3, Observer: obs, Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Iterations)
	assert.Equal(t, 25, calls)
	assert.Equal(t, 1, terminal)
}

func TestSolveStopsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t, store.EngineGenetic)
	cfg.Genetic.Generations = 1_000_000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res, err := solve(ctx, cfg, solveRequest{Seed: 1, Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
}

func TestSolveWithCacheAndWarmStart(t *testing.T) {
	for _, engine := range []string{store.EngineAnnealing, store.EngineGenetic} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t, engine)
			cfg.CacheSize = 64
			cfg.WarmStart = "mayfly"
			require.NoError(t, cfg.Validate())

			_, res, err := solve(context.Background(), cfg, solveRequest{Seed: 9, Logger: quiet})
			require.NoError(t, err)
			assert.True(t, res.Best.Feasible)
			assert.LessOrEqual(t, res.BestScore, 10.0)
			assert.Greater(t, res.Iterations, 0)
		})
	}
}

func TestWarmStart(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	p, err := newProblem(cfg)
	require.NoError(t, err)
	c, _, err := newCriterion(cfg, quiet)
	require.NoError(t, err)

	s, err := warmStart(cfg, p, c, 5)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.WarmStart = "mayfly"
	s, err = warmStart(cfg, p, c, 5)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, p.Len(), s.Len())
}

func TestNewCriterionCaches(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	p, err := newProblem(cfg)
	require.NoError(t, err)

	cfg.CacheSize = 8
	c, report, err := newCriterion(cfg, quiet)
	require.NoError(t, err)
	require.NotNil(t, report)

	a := knapsack.NewSolution([]bool{true, true, true, false, false, false, false})
	b := a.Clone()
	c.Evaluate(p, a)
	c.Evaluate(p, b)
	assert.Equal(t, a.Evaluation, b.Evaluation)
	assert.Equal(t, 10.0, c.Score(b))
	report()
}

func TestNewStop(t *testing.T) {
	t.Run("max steps", func(t *testing.T) {
		s, err := newStop(context.Background(), 3, 0, 0, 0)
		require.NoError(t, err)
		s.Reset()
		assert.False(t, s.ShouldStop(1))
		assert.False(t, s.ShouldStop(1))
		assert.True(t, s.ShouldStop(1))
	})

	t.Run("window", func(t *testing.T) {
		s, err := newStop(context.Background(), 0, 2, 0, 0)
		require.NoError(t, err)
		s.Reset()
		assert.False(t, s.ShouldStop(1))
		assert.False(t, s.ShouldStop(1))
		assert.True(t, s.ShouldStop(1))
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s, err := newStop(ctx, 100, 0, 0, 0)
		require.NoError(t, err)
		s.Reset()
		assert.False(t, s.ShouldStop(1))
		cancel()
		assert.True(t, s.ShouldStop(1))
	})

	t.Run("timeout only", func(t *testing.T) {
		s, err := newStop(nil, 0, 0, 0, time.Hour)
		require.NoError(t, err)
		s.Reset()
		assert.False(t, s.ShouldStop(1))
	})

	t.Run("no limit", func(t *testing.T) {
		_, err := newStop(context.Background(), 0, 0, 0, 0)
		assert.ErrorIs(t, err, opt.ErrInvalidConfig)
	})
}

func TestSolveRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	cfg.Engine = "tabu"
	_, _, err := solve(context.Background(), cfg, solveRequest{Logger: quiet})
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)

	cfg = testConfig(t, store.EngineGenetic)
	cfg.Genetic.Selection = "rank"
	_, _, err = solve(context.Background(), cfg, solveRequest{Logger: quiet})
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)

	cfg = testConfig(t, store.EngineAnnealing)
	cfg.Problem.Values = cfg.Problem.Values[:2]
	_, _, err = solve(context.Background(), cfg, solveRequest{Logger: quiet})
	assert.Error(t, err)
}

func TestNewSelector(t *testing.T) {
	g := config.Default().Genetic

	g.Selection = "roulette"
	s, err := newSelector(g)
	require.NoError(t, err)
	assert.IsType(t, genetic.Roulette{}, s)

	g.Selection = "tournament"
	g.TournamentSize = 4
	s, err = newSelector(g)
	require.NoError(t, err)
	tour, ok := s.(*genetic.Tournament)
	require.True(t, ok)
	assert.Equal(t, 4, tour.Size())

	g.TournamentSize = 0
	_, err = newSelector(g)
	assert.ErrorIs(t, err, opt.ErrInvalidConfig)
}

func TestNewRecord(t *testing.T) {
	cfg := testConfig(t, store.EngineGenetic)
	cfg.Genetic.Generations = 5
	p, res, err := solve(context.Background(), cfg, solveRequest{Seed: 11, Logger: quiet})
	require.NoError(t, err)

	record, err := newRecord("run-1", cfg, 11, p, res)
	require.NoError(t, err)
	require.NoError(t, record.Validate())
	assert.Equal(t, store.EngineGenetic, record.Engine)
	assert.Equal(t, res.BestScore, record.BestScore)
	assert.Equal(t, uint64(11), record.Config.Seed)
	assert.Equal(t, 7, record.Config.Items)

	var decoded knapsack.Solution
	require.NoError(t, json.Unmarshal(record.Solution, &decoded))
	assert.Equal(t, res.Best.Picked, decoded.Picked)

	fs, err := store.NewFSStore(cfg.DataDir)
	require.NoError(t, err)
	require.NoError(t, fs.SaveRecord(record))
}

func TestExhaustive(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	p, err := newProblem(cfg)
	require.NoError(t, err)
	c, _, err := newCriterion(cfg, quiet)
	require.NoError(t, err)

	best, ok := exhaustive(p, c)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, best.Items())
	assert.Equal(t, 10.0, c.Score(best))

	cfg.Criterion.Maximize = false
	c, _, err = newCriterion(cfg, quiet)
	require.NoError(t, err)
	best, ok = exhaustive(p, c)
	require.True(t, ok)
	assert.Empty(t, best.Items())

	big := make([]float64, exhaustiveLimit+1)
	for i := range big {
		big[i] = 1
	}
	large, err := knapsack.NewProblem(0, big, big, 5)
	require.NoError(t, err)
	_, ok = exhaustive(large, c)
	assert.False(t, ok)
}

func TestBench(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)

	report, err := bench(context.Background(), cfg, 8, 3, 1, quiet)
	require.NoError(t, err)
	assert.Equal(t, 8, report.Runs)
	assert.True(t, report.Exact)
	assert.Equal(t, 10.0, report.Optimum)
	assert.GreaterOrEqual(t, report.Hits, 7)
	assert.GreaterOrEqual(t, report.Feasible, report.Hits)
	assert.Len(t, report.Scores, 8)
	assert.Equal(t, 10.0, report.median())

	_, err = bench(context.Background(), cfg, 0, 1, 1, quiet)
	assert.Error(t, err)
}

func TestApplyRunFlags(t *testing.T) {
	cfg := testConfig(t, store.EngineAnnealing)
	cmd := runCmd
	t.Cleanup(func() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})

	require.NoError(t, cmd.Flags().Set("engine", "genetic"))
	require.NoError(t, cmd.Flags().Set("seed", "77"))
	require.NoError(t, cmd.Flags().Set("warm-start", "mayfly"))
	require.NoError(t, applyRunFlags(cmd, cfg))
	assert.Equal(t, "genetic", cfg.Engine)
	assert.Equal(t, uint64(77), cfg.Seed)
	assert.Equal(t, "mayfly", cfg.WarmStart)

	require.NoError(t, cmd.Flags().Set("engine", "tabu"))
	assert.ErrorIs(t, applyRunFlags(cmd, cfg), opt.ErrInvalidConfig)
}
