package opt

// Evaluation holds the objective value and feasibility information for one candidate.
//
// Embed it in a solution struct to satisfy the Eval part of the Solution interface:
//
//	type Tour struct {
//		opt.Evaluation
//		Order []int
//	}
type Evaluation struct {
	Value    float64 `json:"value"`
	Penalty  float64 `json:"penalty"`
	Feasible bool    `json:"feasible"`

	evaluated bool
}

// Eval returns the evaluation itself so embedding structs expose it.
func (e *Evaluation) Eval() *Evaluation {
	return e
}

// Evaluated reports whether the evaluation reflects the current payload.
func (e *Evaluation) Evaluated() bool {
	return e.evaluated
}

// Invalidate marks the evaluation stale after the payload has been changed.
func (e *Evaluation) Invalidate() {
	e.evaluated = false
}

// Reset zeroes the evaluation.
func (e *Evaluation) Reset() {
	*e = Evaluation{}
}

func (e *Evaluation) set(value, penalty float64) {
	e.Value = value
	e.Penalty = penalty
	e.Feasible = penalty == 0
	e.evaluated = true
}
