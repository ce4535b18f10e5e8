package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter runs the mayfly swarm optimizer behind the Optimizer interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a mayfly-backed optimizer. popSize must be at least 20.
func NewMayfly(maxIters, popSize int, seed int64) (*MayflyAdapter, error) {
	if maxIters <= 0 {
		return nil, &ConfigError{Field: "mayfly.max_iters", Reason: "must be positive"}
	}
	if popSize < 20 {
		return nil, &ConfigError{Field: "mayfly.pop_size", Reason: "must be at least 20"}
	}
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}, nil
}

// Run minimizes eval. The library takes scalar bounds, so the first dimension's
// bounds apply to all dimensions.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if dim <= 0 || len(lower) == 0 || len(upper) == 0 {
		return nil, 0, &ConfigError{Field: "mayfly.dim", Reason: "must be positive with bounds"}
	}

	// Start from the library defaults
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// Scalar bounds, taken from the first dimension
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]

	// Seeded for reproducible warm starts
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
