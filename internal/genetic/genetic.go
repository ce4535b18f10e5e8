// Package genetic implements a generational genetic search with single-point
// crossover and per-locus mutation.
package genetic

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/stop"
)

// Elitism controls whether the previous generation's best survives replacement.
type Elitism int

const (
	// ElitismNone is pure generational replacement.
	ElitismNone Elitism = iota
	// ElitismKeepBest puts the previous generation's best in place of a uniformly chosen child.
	ElitismKeepBest
)

func (e Elitism) String() string {
	switch e {
	case ElitismNone:
		return "none"
	case ElitismKeepBest:
		return "keep_best"
	default:
		return fmt.Sprintf("elitism(%d)", int(e))
	}
}

// ParseElitism parses "none" or "keep_best".
func ParseElitism(s string) (Elitism, error) {
	switch s {
	case "", "none":
		return ElitismNone, nil
	case "keep_best":
		return ElitismKeepBest, nil
	default:
		return ElitismNone, &opt.ConfigError{Field: "elitism", Reason: "must be none or keep_best, got " + s}
	}
}

// Factory creates the i-th individual of an initial population.
type Factory[S any] func(i int, rng *rand.Rand) S

// Config holds everything needed to build a genetic engine.
type Config[P opt.Problem, S Genome[S]] struct {
	Factory        Factory[S]
	PopulationSize int
	MutateRate     float64
	Selector       Selector
	Elitism        Elitism
	// Stop is consulted once per generation.
	Stop stop.Criteria

	// Observer is optional.
	Observer opt.Observer[P, S]
	// Rand is optional; an OS-seeded generator is used when nil.
	Rand *rand.Rand
	// Logger is optional; slog.Default() is used when nil.
	Logger *slog.Logger
}

// Engine is a genetic search engine. It is not safe for concurrent use.
type Engine[P opt.Problem, S Genome[S]] struct {
	factory  Factory[S]
	size     int
	rate     float64
	selector Selector
	elitism  Elitism
	stop     stop.Criteria
	observer opt.Observer[P, S]
	rng      *rand.Rand
	logger   *slog.Logger

	spare S
}

// New validates cfg and builds an engine. The factory is called once to check that
// individuals are long enough for single-point crossover.
func New[P opt.Problem, S Genome[S]](cfg Config[P, S]) (*Engine[P, S], error) {
	if cfg.Factory == nil {
		return nil, &opt.ConfigError{Field: "factory", Reason: "cannot be nil"}
	}
	if cfg.PopulationSize <= 0 {
		return nil, &opt.ConfigError{Field: "population_size", Reason: "population cannot be empty"}
	}
	if cfg.PopulationSize < 2 {
		return nil, &opt.ConfigError{Field: "population_size", Reason: "must be at least 2"}
	}
	if !(cfg.MutateRate >= 0 && cfg.MutateRate <= 1) {
		return nil, &opt.ConfigError{Field: "mutate_rate", Reason: "must be in [0,1]"}
	}
	if cfg.Selector == nil {
		return nil, &opt.ConfigError{Field: "selection", Reason: "cannot be nil"}
	}
	if cfg.Stop == nil {
		return nil, &opt.ConfigError{Field: "stop", Reason: "cannot be nil"}
	}
	if cfg.Elitism != ElitismNone && cfg.Elitism != ElitismKeepBest {
		return nil, &opt.ConfigError{Field: "elitism", Reason: "unknown mode " + cfg.Elitism.String()}
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	probe := cfg.Factory(0, rng)
	if opt.IsNil(probe) {
		return nil, &opt.ConfigError{Field: "factory", Reason: "returned nil"}
	}
	if probe.Len() < 2 {
		return nil, &opt.ConfigError{Field: "factory", Reason: fmt.Sprintf("payload length %d is below 2", probe.Len())}
	}

	return &Engine[P, S]{
		factory:  cfg.Factory,
		size:     cfg.PopulationSize,
		rate:     cfg.MutateRate,
		selector: cfg.Selector,
		elitism:  cfg.Elitism,
		stop:     cfg.Stop,
		observer: cfg.Observer,
		rng:      rng,
		logger:   logger,
		spare:    probe,
	}, nil
}

// Solve evolves a fresh population on problem and returns the best individual seen.
// Iterations in the result counts generations.
func (e *Engine[P, S]) Solve(problem P, criterion *opt.Criterion[P, S]) opt.Result[S] {
	start := time.Now()
	e.stop.Reset()

	// Build the initial population and the children buffers
	pop := make([]S, e.size)
	for i := range pop {
		pop[i] = e.factory(i, e.rng)
	}
	next := make([]S, e.size)
	for i := range next {
		next[i] = pop[i].Clone()
	}
	scores := make([]float64, e.size)
	feasible := make([]bool, e.size)

	leader := e.evaluate(problem, criterion, pop, scores, feasible)
	best := pop[leader].Clone()
	bestScore := criterion.Score(best)
	result := opt.Result[S]{InitialScore: bestScore}

	e.logger.Info("Starting genetic search",
		"problem_id", problem.ID(),
		"population_size", e.size,
		"mutate_rate", e.rate,
		"elitism", e.elitism.String(),
		"initial_score", bestScore,
	)

	gen := 0
	for {
		gen++

		// Score the generation and track the best seen so far
		leader = e.evaluate(problem, criterion, pop, scores, feasible)
		if criterion.IsBetter(pop[leader], best) {
			if feasible[leader] != best.Eval().Feasible {
				stop.Rebase(e.stop)
			}
			best = opt.CloneInto(best, pop[leader])
			bestScore = criterion.Score(best)
		}

		// Breed and mutate the next generation
		e.breed(pop, next, scores, feasible)
		for _, child := range next {
			Mutate(child, e.rate, e.rng)
		}

		// The generation leader replaces a random child, unmutated
		if e.elitism == ElitismKeepBest {
			j := e.rng.IntN(e.size)
			next[j] = opt.CloneInto(next[j], pop[leader])
		}

		generationBest := pop[leader]
		pop, next = next, pop

		opt.Notify(e.logger, e.observer, opt.Snapshot[P, S]{
			Iteration: gen,
			Problem:   problem,
			Best:      best,
			Current:   generationBest,
			BestScore: bestScore,
		})

		if e.stop.ShouldStop(bestScore) {
			break
		}
	}

	// The last children have not been scored yet.
	leader = e.evaluate(problem, criterion, pop, scores, feasible)
	if criterion.IsBetter(pop[leader], best) {
		best = opt.CloneInto(best, pop[leader])
		bestScore = criterion.Score(best)
	}

	// Terminal call lets observers flush
	opt.Notify(e.logger, e.observer, opt.Snapshot[P, S]{
		Iteration: gen,
		Problem:   problem,
		BestScore: bestScore,
		Terminal:  true,
	})

	result.Best = best
	result.BestScore = bestScore
	result.Iterations = gen
	result.Elapsed = time.Since(start)

	e.logger.Info("Genetic search complete",
		"problem_id", problem.ID(),
		"generations", gen,
		"initial_score", result.InitialScore,
		"best_score", bestScore,
		"elapsed", result.Elapsed,
	)

	return result
}

// evaluate scores every stale individual, fills scores and feasible, and returns the
// index of the generation's best.
func (e *Engine[P, S]) evaluate(problem P, criterion *opt.Criterion[P, S], pop []S, scores []float64, feasible []bool) int {
	leader := 0
	for i, s := range pop {
		if !s.Eval().Evaluated() {
			criterion.Evaluate(problem, s)
		}
		scores[i] = criterion.Score(s)
		feasible[i] = s.Eval().Feasible
		if i > 0 && criterion.IsBetter(s, pop[leader]) {
			leader = i
		}
	}

	if math.IsNaN(scores[leader]) {
		e.logger.Debug("Every individual scored NaN", "problem_id", problem.ID())
	}
	return leader
}

// breed fills children with crossover offspring of parents picked by the selector.
// With an odd population the last slot gets one of a pair, chosen uniformly.
func (e *Engine[P, S]) breed(pop, children []S, scores []float64, feasible []bool) {
	n := len(children)
	for i := 0; i < n; {
		a := pop[e.selector.Select(scores, feasible, e.rng)]
		b := pop[e.selector.Select(scores, feasible, e.rng)]

		ca := opt.CloneInto(children[i], a)
		if i+1 < n {
			cb := opt.CloneInto(children[i+1], b)
			crossover(ca, cb, e.rng)
			children[i], children[i+1] = ca, cb
			i += 2
			continue
		}

		// Odd population: breed into the spare and keep one child of the pair
		cb := opt.CloneInto(e.spare, b)
		crossover(ca, cb, e.rng)
		if e.rng.IntN(2) == 1 {
			ca, cb = cb, ca
		}
		children[i] = ca
		e.spare = cb
		i++
	}
}
