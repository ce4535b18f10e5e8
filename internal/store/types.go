package store

import (
	"encoding/json"
	"time"
)

// Engines recorded in a run.
const (
	EngineAnnealing = "annealing"
	EngineGenetic   = "genetic"
)

// RunConfig is the subset of the run configuration kept alongside the result.
type RunConfig struct {
	Seed      uint64  `json:"seed"`
	Maximize  bool    `json:"maximize"`
	Items     int     `json:"items"`
	Capacity  float64 `json:"capacity"`
	WarmStart string  `json:"warmStart,omitempty"`
}

// Record is the persisted outcome of one solve.
//
// Solution holds the engine's best candidate as JSON, including its evaluation.
// Scores are direction-normalized: higher is better in both directions.
type Record struct {
	RunID     string `json:"runId"`
	Engine    string `json:"engine"`
	ProblemID uint32 `json:"problemId"`

	Solution json.RawMessage `json:"solution"`

	BestScore    float64 `json:"bestScore"`
	InitialScore float64 `json:"initialScore"`
	Value        float64 `json:"value"`
	Penalty      float64 `json:"penalty"`
	Feasible     bool    `json:"feasible"`

	Iterations int `json:"iterations"`
	Accepted   int `json:"accepted,omitempty"`
	Rejected   int `json:"rejected,omitempty"`

	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`

	Config RunConfig `json:"config"`
}

// RecordInfo is the listing view of a record, without the solution payload.
type RecordInfo struct {
	RunID      string    `json:"runId"`
	Engine     string    `json:"engine"`
	ProblemID  uint32    `json:"problemId"`
	BestScore  float64   `json:"bestScore"`
	Feasible   bool      `json:"feasible"`
	Iterations int       `json:"iterations"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToInfo strips the record down to its listing view.
func (r *Record) ToInfo() RecordInfo {
	return RecordInfo{
		RunID:      r.RunID,
		Engine:     r.Engine,
		ProblemID:  r.ProblemID,
		BestScore:  r.BestScore,
		Feasible:   r.Feasible,
		Iterations: r.Iterations,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks that a record is complete enough to be saved and listed.
func (r *Record) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.Engine != EngineAnnealing && r.Engine != EngineGenetic {
		return &ValidationError{Field: "Engine", Reason: "must be annealing or genetic"}
	}
	if len(r.Solution) == 0 {
		return &ValidationError{Field: "Solution", Reason: "cannot be empty"}
	}
	if !json.Valid(r.Solution) {
		return &ValidationError{Field: "Solution", Reason: "must be valid JSON"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents an invalid record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
