package telemetry

import (
	"log/slog"
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"golang.org/x/time/rate"
)

// Progress logs solver progress at most once per interval. The first iteration and
// the terminal call are always logged.
type Progress[P opt.Problem, S any] struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	engine  string
	last    int
}

// NewProgress creates a progress logger. A non-positive interval logs every iteration.
func NewProgress[P opt.Problem, S any](logger *slog.Logger, engine string, interval time.Duration) *Progress[P, S] {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Progress[P, S]{
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		engine:  engine,
	}
}

func (p *Progress[P, S]) Observe(snap opt.Snapshot[P, S]) error {
	if snap.Terminal {
		p.logger.Info("Solve finished",
			"engine", p.engine,
			"problem_id", snap.Problem.ID(),
			"iterations", snap.Iteration,
			"best_score", snap.BestScore,
		)
		return nil
	}
	if !p.limiter.Allow() {
		return nil
	}

	attrs := []any{
		"engine", p.engine,
		"problem_id", snap.Problem.ID(),
		"iteration", snap.Iteration,
		"since_last", snap.Iteration - p.last,
		"best_score", snap.BestScore,
	}
	if snap.Temperature != 0 {
		attrs = append(attrs, "temperature", snap.Temperature)
	}
	p.logger.Info("Optimization progress", attrs...)
	p.last = snap.Iteration
	return nil
}
