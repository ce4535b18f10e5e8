// Package knapsack is the 0/1 knapsack workload for the search engines.
package knapsack

import (
	"fmt"
	"math"

	"github.com/cwbudde/optima/internal/opt"
)

// Problem is an immutable 0/1 knapsack instance.
type Problem struct {
	id       uint32
	weights  []float64
	values   []float64
	capacity float64
}

// NewProblem validates and copies the instance data.
func NewProblem(id uint32, weights, values []float64, capacity float64) (*Problem, error) {
	if len(weights) == 0 {
		return nil, &opt.ConfigError{Field: "problem.weights", Reason: "cannot be empty"}
	}
	if len(weights) != len(values) {
		return nil, &opt.ConfigError{
			Field:  "problem.values",
			Reason: fmt.Sprintf("length mismatch: %d weights, %d values", len(weights), len(values)),
		}
	}
	if !(capacity >= 0) {
		return nil, &opt.ConfigError{Field: "problem.capacity", Reason: "must be non-negative"}
	}
	for i := range weights {
		if math.IsNaN(weights[i]) || math.IsNaN(values[i]) {
			return nil, &opt.ConfigError{Field: "problem", Reason: fmt.Sprintf("item %d is NaN", i)}
		}
	}

	return &Problem{
		id:       id,
		weights:  append([]float64(nil), weights...),
		values:   append([]float64(nil), values...),
		capacity: capacity,
	}, nil
}

// WithID returns a copy of the instance under another identifier.
func (p *Problem) WithID(id uint32) *Problem {
	c := *p
	c.id = id
	return &c
}

func (p *Problem) ID() uint32 { return p.id }

// Len returns the number of items.
func (p *Problem) Len() int { return len(p.weights) }

func (p *Problem) Weight(i int) float64 { return p.weights[i] }
func (p *Problem) Value(i int) float64  { return p.values[i] }
func (p *Problem) Capacity() float64    { return p.capacity }
