package knapsack

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/optima/internal/opt"
)

// Decode thresholds a point of the continuous relaxation [0,1]^n at 0.5.
func Decode(x []float64) *Solution {
	s := Empty(len(x))
	for i, v := range x {
		s.Picked[i] = v >= 0.5
	}
	return s
}

// Seed searches the continuous relaxation with optimizer and returns the decoded
// best point as an unevaluated starting solution.
func Seed(p *Problem, criterion *opt.Criterion[*Problem, *Solution], optimizer opt.Optimizer) (*Solution, error) {
	n := p.Len()
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = 1
	}

	// The optimizer minimizes, scores are maximized.
	cost := func(x []float64) float64 {
		s := Decode(x)
		criterion.Evaluate(p, s)
		return -criterion.Score(s)
	}

	best, bestCost, err := optimizer.Run(cost, lower, upper, n)
	if err != nil {
		return nil, fmt.Errorf("failed to seed from relaxation: %w", err)
	}

	seed := Decode(best)
	slog.Debug("Seeded from continuous relaxation", "problem_id", p.ID(), "score", -bestCost, "picked", seed.String())
	return seed, nil
}
