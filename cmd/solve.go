package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cwbudde/optima/internal/anneal"
	"github.com/cwbudde/optima/internal/config"
	"github.com/cwbudde/optima/internal/genetic"
	"github.com/cwbudde/optima/internal/knapsack"
	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/stop"
	"github.com/cwbudde/optima/internal/store"
)

type (
	problem   = *knapsack.Problem
	solution  = *knapsack.Solution
	criterion = opt.Criterion[problem, solution]
	observer  = opt.Observer[problem, solution]
	result    = opt.Result[solution]
)

// exhaustiveLimit caps the instance size for which the optimum is enumerated.
const exhaustiveLimit = 20

// solveRequest bundles everything one solve needs besides the configuration.
type solveRequest struct {
	Seed     uint64
	Observer observer
	Logger   *slog.Logger
}

func newProblem(cfg *config.Config) (problem, error) {
	return knapsack.NewProblem(cfg.Problem.ID, cfg.Problem.Weights, cfg.Problem.Values, cfg.Problem.Capacity)
}

// newCriterion builds the knapsack criterion, memoizing value and penalty when the
// cache is enabled.
func newCriterion(cfg *config.Config, logger *slog.Logger) (*criterion, func(), error) {
	value, penalty := opt.ValueFunc[problem, solution](knapsack.Value), opt.PenaltyFunc[problem, solution](knapsack.Penalty)
	report := func() {}

	if cfg.CacheSize > 0 {
		vm, err := opt.NewMemo(knapsack.Value, knapsack.Key, cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		pm, err := opt.NewMemo(knapsack.Penalty, knapsack.Key, cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		value, penalty = vm.Call, pm.Call
		report = func() {
			hits, misses := vm.Stats()
			logger.Debug("Evaluation cache", "hits", hits, "misses", misses)
		}
	}

	c, err := opt.NewCriterion(value, penalty, cfg.Criterion.Maximize)
	if err != nil {
		return nil, nil, err
	}
	return c, report, nil
}

// newStop combines the configured limits with the run timeout and ctx cancellation.
func newStop(ctx context.Context, maxSteps, window int, minDelta float64, timeout time.Duration) (stop.Criteria, error) {
	var parts []stop.Criteria
	if maxSteps > 0 {
		m, err := stop.NewMaxSteps(maxSteps)
		if err != nil {
			return nil, err
		}
		parts = append(parts, m)
	}
	if window > 0 {
		n, err := stop.NewNotGettingBetter(window, minDelta)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if timeout > 0 {
		d, err := stop.NewDeadline(timeout)
		if err != nil {
			return nil, err
		}
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return nil, &opt.ConfigError{Field: "stop", Reason: "no limit configured"}
	}
	if ctx != nil {
		parts = append(parts, stop.NewContext(ctx))
	}
	return stop.Any(parts...), nil
}

// warmStart decodes a mayfly search of the continuous relaxation into a starting
// candidate, or returns nil when warm starting is off.
func warmStart(cfg *config.Config, p problem, c *criterion, seed uint64) (solution, error) {
	if cfg.WarmStart != "mayfly" {
		return nil, nil
	}
	optimizer, err := opt.NewMayfly(100, 30, int64(seed&math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return knapsack.Seed(p, c, optimizer)
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// solve runs the configured engine once.
func solve(ctx context.Context, cfg *config.Config, req solveRequest) (problem, result, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p, err := newProblem(cfg)
	if err != nil {
		return nil, result{}, err
	}
	c, report, err := newCriterion(cfg, logger)
	if err != nil {
		return nil, result{}, err
	}
	defer report()

	rng := newRand(req.Seed)
	start, err := warmStart(cfg, p, c, req.Seed)
	if err != nil {
		return nil, result{}, err
	}

	switch cfg.Engine {
	case store.EngineAnnealing:
		a := cfg.Annealing
		criteria, err := newStop(ctx, a.MaxSteps, a.NoImprovementWindow, a.MinDelta, cfg.Timeout)
		if err != nil {
			return nil, result{}, err
		}
		cooler, err := anneal.NewQuadraticCooler(a.InitialTemperature, a.CoolingAlpha)
		if err != nil {
			return nil, result{}, err
		}
		initial := start
		if initial == nil {
			initial = knapsack.Random(p.Len(), rng)
		}

		engine, err := anneal.New(anneal.Config[problem, solution]{
			Initial:  initial,
			Stop:     criteria,
			Cooler:   cooler,
			Mover:    knapsack.Flip,
			Observer: req.Observer,
			Rand:     rng,
			Logger:   logger,
		})
		if err != nil {
			return nil, result{}, err
		}
		return p, engine.Solve(p, c), nil

	case store.EngineGenetic:
		g := cfg.Genetic
		criteria, err := newStop(ctx, g.Generations, g.NoImprovementWindow, g.MinDelta, cfg.Timeout)
		if err != nil {
			return nil, result{}, err
		}
		selector, err := newSelector(g)
		if err != nil {
			return nil, result{}, err
		}
		elitism, err := genetic.ParseElitism(g.Elitism)
		if err != nil {
			return nil, result{}, err
		}

		random := knapsack.Factory(p.Len())
		factory := func(i int, rng *rand.Rand) solution {
			if i == 0 && start != nil {
				return start.Clone()
			}
			return random(i, rng)
		}

		engine, err := genetic.New(genetic.Config[problem, solution]{
			Factory:        factory,
			PopulationSize: g.PopulationSize,
			MutateRate:     g.MutateRate,
			Selector:       selector,
			Elitism:        elitism,
			Stop:           criteria,
			Observer:       req.Observer,
			Rand:           rng,
			Logger:         logger,
		})
		if err != nil {
			return nil, result{}, err
		}
		return p, engine.Solve(p, c), nil

	default:
		return nil, result{}, &opt.ConfigError{Field: "engine", Reason: "unknown engine " + cfg.Engine}
	}
}

func newSelector(g config.GeneticConfig) (genetic.Selector, error) {
	switch g.Selection {
	case "roulette":
		return genetic.Roulette{}, nil
	case "tournament":
		return genetic.NewTournament(g.TournamentSize)
	default:
		return nil, &opt.ConfigError{Field: "genetic.selection", Reason: "unknown operator " + g.Selection}
	}
}

// newRecord converts a finished solve into its persisted form.
func newRecord(runID string, cfg *config.Config, seed uint64, p problem, res result) (*store.Record, error) {
	payload, err := json.Marshal(res.Best)
	if err != nil {
		return nil, fmt.Errorf("failed to encode best solution: %w", err)
	}
	ev := res.Best.Eval()
	return &store.Record{
		RunID:        runID,
		Engine:       cfg.Engine,
		ProblemID:    p.ID(),
		Solution:     payload,
		BestScore:    res.BestScore,
		InitialScore: res.InitialScore,
		Value:        ev.Value,
		Penalty:      ev.Penalty,
		Feasible:     ev.Feasible,
		Iterations:   res.Iterations,
		Accepted:     res.Accepted,
		Rejected:     res.Rejected,
		Elapsed:      res.Elapsed,
		Timestamp:    time.Now().UTC(),
		Config: store.RunConfig{
			Seed:      seed,
			Maximize:  cfg.Criterion.Maximize,
			Items:     p.Len(),
			Capacity:  p.Capacity(),
			WarmStart: cfg.WarmStart,
		},
	}, nil
}

// exhaustive enumerates every subset and returns the preferred one. ok is false
// when the instance is too large to enumerate.
func exhaustive(p problem, c *criterion) (best solution, ok bool) {
	n := p.Len()
	if n > exhaustiveLimit {
		return nil, false
	}
	s := knapsack.Empty(n)
	for mask := 0; mask < 1<<n; mask++ {
		for i := range s.Picked {
			s.Picked[i] = mask&(1<<i) != 0
		}
		c.Evaluate(p, s)
		if best == nil || c.IsBetter(s, best) {
			best = s.Clone()
		}
	}
	return best, true
}
