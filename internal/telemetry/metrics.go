package telemetry

import (
	"math"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the solver collectors. All series are labeled by engine.
type Metrics struct {
	Iterations  *prometheus.CounterVec
	Solves      *prometheus.CounterVec
	BestScore   *prometheus.GaugeVec
	Temperature *prometheus.GaugeVec
	Infeasible  *prometheus.CounterVec
}

// NewMetrics registers the solver collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optima",
			Name:      "iterations_total",
			Help:      "Solver iterations (annealing steps or generations).",
		}, []string{"engine"}),
		Solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optima",
			Name:      "solves_total",
			Help:      "Completed solves.",
		}, []string{"engine"}),
		BestScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "optima",
			Name:      "best_score",
			Help:      "Direction-normalized score of the best candidate in the running solve.",
		}, []string{"engine"}),
		Temperature: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "optima",
			Name:      "temperature",
			Help:      "Annealing temperature used by the last step.",
		}, []string{"engine"}),
		Infeasible: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optima",
			Name:      "infeasible_candidates_total",
			Help:      "Iterations whose current candidate violated a constraint.",
		}, []string{"engine"}),
	}
}

// MetricsObserver feeds m from solver snapshots.
func MetricsObserver[P opt.Problem, S opt.Solution[S]](m *Metrics, engine string) opt.Observer[P, S] {
	iterations := m.Iterations.WithLabelValues(engine)
	solves := m.Solves.WithLabelValues(engine)
	best := m.BestScore.WithLabelValues(engine)
	temp := m.Temperature.WithLabelValues(engine)
	infeasible := m.Infeasible.WithLabelValues(engine)

	return opt.ObserverFunc[P, S](func(snap opt.Snapshot[P, S]) error {
		if snap.Terminal {
			solves.Inc()
			return nil
		}
		iterations.Inc()
		if !math.IsNaN(snap.BestScore) {
			best.Set(snap.BestScore)
		}
		temp.Set(snap.Temperature)
		if !snap.Current.Eval().Feasible {
			infeasible.Inc()
		}
		return nil
	})
}
