package opt

import "math"

// ValueFunc computes the objective value of a candidate. It must be pure.
type ValueFunc[P Problem, S any] func(problem P, solution S) float64

// PenaltyFunc returns 0 for feasible candidates and a negative amount of constraint
// violation otherwise. It must be pure.
type PenaltyFunc[P Problem, S any] func(problem P, solution S) float64

// Criterion combines a value function and a penalty function into a single score
// with a direction.
//
// Scores are direction-normalized: higher is always preferred. When maximizing the
// score is value+penalty, when minimizing it is -value+penalty. Penalties therefore
// lower the score in both directions.
type Criterion[P Problem, S Solution[S]] struct {
	value    ValueFunc[P, S]
	penalty  PenaltyFunc[P, S]
	maximize bool
}

// NewCriterion creates a criterion. A nil penalty function treats every candidate as feasible.
func NewCriterion[P Problem, S Solution[S]](value ValueFunc[P, S], penalty PenaltyFunc[P, S], maximize bool) (*Criterion[P, S], error) {
	if value == nil {
		return nil, &ConfigError{Field: "criterion.value_fn", Reason: "cannot be nil"}
	}
	if penalty == nil {
		penalty = func(P, S) float64 { return 0 }
	}
	return &Criterion[P, S]{
		value:    value,
		penalty:  penalty,
		maximize: maximize,
	}, nil
}

// Maximize reports the optimization direction.
func (c *Criterion[P, S]) Maximize() bool {
	return c.maximize
}

// Evaluate computes value and penalty for the solution and writes them into its evaluation.
func (c *Criterion[P, S]) Evaluate(problem P, solution S) {
	v := c.value(problem, solution)
	p := c.penalty(problem, solution)
	solution.Eval().set(v, p)
}

// Score returns the direction-normalized aggregate for an evaluated solution.
// NaN inputs yield NaN.
func (c *Criterion[P, S]) Score(solution S) float64 {
	return c.ScoreOf(solution.Eval())
}

// ScoreOf is Score for a bare evaluation.
func (c *Criterion[P, S]) ScoreOf(e *Evaluation) float64 {
	if c.maximize {
		return e.Value + e.Penalty
	}
	return -e.Value + e.Penalty
}

// IsBetter reports whether a is strictly preferred to b. Feasible candidates are
// preferred to infeasible ones regardless of score; otherwise the higher score wins.
// A NaN score is never better than anything, and anything is better than NaN.
func (c *Criterion[P, S]) IsBetter(a, b S) bool {
	return c.Prefers(a.Eval(), b.Eval())
}

// Prefers is IsBetter for bare evaluations.
func (c *Criterion[P, S]) Prefers(a, b *Evaluation) bool {
	return Preferred(c.ScoreOf(a), a.Feasible, c.ScoreOf(b), b.Feasible)
}

// Preferred is the IsBetter ordering on direction-normalized scores and
// feasibility flags.
func Preferred(sa float64, fa bool, sb float64, fb bool) bool {
	switch {
	case math.IsNaN(sa):
		return false
	case math.IsNaN(sb):
		return true
	case fa != fb:
		return fa
	default:
		return sa > sb
	}
}

// Better compares two direction-normalized scores.
func Better(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}
