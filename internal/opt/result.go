package opt

import "time"

// Result holds the output of a solve.
type Result[S any] struct {
	Best         S
	BestScore    float64
	InitialScore float64
	Iterations   int
	Accepted     int // annealing only
	Rejected     int // annealing only
	Elapsed      time.Duration
}

// Improvement returns how much the best score moved past the initial one.
func (r *Result[S]) Improvement() float64 {
	return r.BestScore - r.InitialScore
}
