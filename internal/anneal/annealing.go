// Package anneal implements single-trajectory simulated annealing.
package anneal

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/stop"
)

// Mover perturbs a solution in place. It does not need to provide an inverse:
// the engine snapshots the candidate before every move and restores it on rejection.
type Mover[P opt.Problem, S any] func(solution S, problem P, rng *rand.Rand)

// Config holds everything needed to build an annealing engine.
type Config[P opt.Problem, S opt.Solution[S]] struct {
	// Initial is cloned at the start of every solve and never modified.
	Initial S
	Stop    stop.Criteria
	Cooler  Cooler
	Mover   Mover[P, S]

	// Observer is optional.
	Observer opt.Observer[P, S]
	// Rand is optional; an OS-seeded generator is used when nil.
	Rand *rand.Rand
	// Logger is optional; slog.Default() is used when nil.
	Logger *slog.Logger
}

// Annealing is a simulated annealing engine. It is not safe for concurrent use,
// but can run successive solves on different problems.
type Annealing[P opt.Problem, S opt.Solution[S]] struct {
	initial  S
	stop     stop.Criteria
	cooler   Cooler
	mover    Mover[P, S]
	observer opt.Observer[P, S]
	rng      *rand.Rand
	logger   *slog.Logger
}

// New validates cfg and builds an engine.
func New[P opt.Problem, S opt.Solution[S]](cfg Config[P, S]) (*Annealing[P, S], error) {
	if opt.IsNil(cfg.Initial) {
		return nil, &opt.ConfigError{Field: "initial", Reason: "cannot be nil"}
	}
	if cfg.Stop == nil {
		return nil, &opt.ConfigError{Field: "stop", Reason: "cannot be nil"}
	}
	if cfg.Cooler == nil {
		return nil, &opt.ConfigError{Field: "cooler", Reason: "cannot be nil"}
	}
	if cfg.Mover == nil {
		return nil, &opt.ConfigError{Field: "mover", Reason: "cannot be nil"}
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Annealing[P, S]{
		initial:  cfg.Initial,
		stop:     cfg.Stop,
		cooler:   cfg.Cooler,
		mover:    cfg.Mover,
		observer: cfg.Observer,
		rng:      rng,
		logger:   logger,
	}, nil
}

// Solve runs the search on problem and returns the best candidate found.
// The problem and criterion are only read.
func (a *Annealing[P, S]) Solve(problem P, criterion *opt.Criterion[P, S]) opt.Result[S] {
	start := time.Now()

	a.cooler.Reset()
	a.stop.Reset()

	// Evaluate the starting point; it is the first best
	current := a.initial.Clone()
	criterion.Evaluate(problem, current)
	best := current.Clone()
	before := current.Clone()
	bestScore := criterion.Score(best)

	result := opt.Result[S]{InitialScore: bestScore}

	a.logger.Info("Starting simulated annealing",
		"problem_id", problem.ID(),
		"initial_temp", a.cooler.Temp(),
		"initial_score", bestScore,
	)

	iter := 0
	for {
		iter++
		temp := a.cooler.Temp()

		// Snapshot, then perturb in place
		before = opt.CloneInto(before, current)
		a.mover(current, problem, a.rng)
		criterion.Evaluate(problem, current)

		if a.accept(criterion.Score(current), criterion.Score(before), temp) {
			result.Accepted++
			if criterion.IsBetter(current, best) {
				if current.Eval().Feasible != best.Eval().Feasible {
					stop.Rebase(a.stop)
				}
				best = opt.CloneInto(best, current)
				bestScore = criterion.Score(best)
			}
		} else {
			// Roll back by swapping buffers: before is the untouched pre-move snapshot.
			result.Rejected++
			current, before = before, current
		}

		a.cooler.Cool()

		// Report, then decide whether to go on
		opt.Notify(a.logger, a.observer, opt.Snapshot[P, S]{
			Iteration:   iter,
			Problem:     problem,
			Best:        best,
			Current:     current,
			BestScore:   bestScore,
			Temperature: temp,
		})

		if a.stop.ShouldStop(bestScore) {
			break
		}
	}

	// Terminal call lets observers flush
	opt.Notify(a.logger, a.observer, opt.Snapshot[P, S]{
		Iteration: iter,
		Problem:   problem,
		BestScore: bestScore,
		Terminal:  true,
	})

	result.Best = best
	result.BestScore = bestScore
	result.Iterations = iter
	result.Elapsed = time.Since(start)

	a.logger.Debug("Annealing acceptance statistics",
		"problem_id", problem.ID(),
		"accepted", result.Accepted,
		"rejected", result.Rejected,
		"final_temp", a.cooler.Temp(),
	)
	a.logger.Info("Simulated annealing complete",
		"problem_id", problem.ID(),
		"iterations", iter,
		"initial_score", result.InitialScore,
		"best_score", bestScore,
		"elapsed", result.Elapsed,
	)

	return result
}

// accept applies the Metropolis rule on direction-normalized scores. Zero-delta moves
// are rejected, and so is every worse move at a non-positive temperature.
func (a *Annealing[P, S]) accept(current, previous, temp float64) bool {
	if math.IsNaN(current) {
		return false
	}
	if math.IsNaN(previous) {
		return true
	}

	delta := current - previous
	switch {
	case math.IsNaN(delta):
		return false
	case delta > 0:
		return true
	case delta == 0:
		return false
	case !(temp > 0):
		return false
	}

	return a.rng.Float64() < math.Exp(delta/temp)
}
