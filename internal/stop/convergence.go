package stop

import (
	"log/slog"
	"math"

	"github.com/cwbudde/optima/internal/opt"
)

// NotGettingBetter halts when the best score has not improved by more than MinDelta
// during the last Window ticks.
type NotGettingBetter struct {
	window   int
	minDelta float64

	best       float64 // Best score seen since reset
	staleCount int     // Ticks since the last improvement
	ticks      int
}

// NewNotGettingBetter creates a stagnation criterion.
func NewNotGettingBetter(window int, minDelta float64) (*NotGettingBetter, error) {
	if window <= 0 {
		return nil, &opt.ConfigError{Field: "no_improvement_window", Reason: "must be positive"}
	}
	if minDelta < 0 || math.IsNaN(minDelta) {
		return nil, &opt.ConfigError{Field: "min_delta", Reason: "must be a non-negative number"}
	}
	n := &NotGettingBetter{window: window, minDelta: minDelta}
	n.Reset()
	return n, nil
}

// ShouldStop records the current best score and reports whether the window of
// stagnation has been reached.
func (n *NotGettingBetter) ShouldStop(bestScore float64) bool {
	n.ticks++

	if !math.IsNaN(bestScore) && bestScore-n.best > n.minDelta {
		n.best = bestScore
		n.staleCount = 0
		return false
	}

	n.staleCount++
	if n.staleCount >= n.window {
		slog.Debug("No improvement within window - stopping",
			"stale_count", n.staleCount,
			"window", n.window,
			"best_score", n.best,
			"ticks", n.ticks,
		)
		return true
	}
	return false
}

// Rebase drops the remembered best and the stale count. Ticks are kept.
func (n *NotGettingBetter) Rebase() {
	n.best = math.Inf(-1)
	n.staleCount = 0
}

func (n *NotGettingBetter) Reset() {
	n.best = math.Inf(-1)
	n.staleCount = 0
	n.ticks = 0
}

// Best returns the best score seen since the last reset.
func (n *NotGettingBetter) Best() float64 {
	return n.best
}

// StaleCount returns the number of ticks since the last improvement.
func (n *NotGettingBetter) StaleCount() int {
	return n.staleCount
}
