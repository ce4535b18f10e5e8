package anneal

import (
	"math"

	"github.com/cwbudde/optima/internal/opt"
)

// Cooler supplies the annealing temperature schedule.
type Cooler interface {
	// Temp returns the current temperature, always >= 0.
	Temp() float64
	// Cool advances the schedule by one step. Temperatures never increase.
	Cool()
	// Reset restores the initial temperature.
	Reset()
}

// QuadraticCooler multiplies the temperature by alpha^2 on every step,
// so T_k = T_0 * alpha^(2k).
type QuadraticCooler struct {
	initial float64
	current float64
	factor  float64
}

// NewQuadraticCooler creates a quadratic schedule starting at initial with alpha in (0,1).
func NewQuadraticCooler(initial, alpha float64) (*QuadraticCooler, error) {
	if !(initial >= 0) || math.IsInf(initial, 1) {
		return nil, &opt.ConfigError{Field: "initial_temperature", Reason: "must be finite and non-negative"}
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, &opt.ConfigError{Field: "cooling_alpha", Reason: "must be in (0,1)"}
	}
	return &QuadraticCooler{
		initial: initial,
		current: initial,
		factor:  alpha * alpha,
	}, nil
}

func (q *QuadraticCooler) Temp() float64 {
	return q.current
}

// Cool may underflow to 0, which freezes the schedule.
func (q *QuadraticCooler) Cool() {
	q.current *= q.factor
}

func (q *QuadraticCooler) Reset() {
	q.current = q.initial
}

// ConstantCooler keeps a fixed temperature. A zero temperature turns annealing into
// greedy hill climbing; +Inf turns it into a random walk.
type ConstantCooler struct {
	temp float64
}

// NewConstantCooler creates a fixed schedule. temp may be +Inf.
func NewConstantCooler(temp float64) (*ConstantCooler, error) {
	if !(temp >= 0) {
		return nil, &opt.ConfigError{Field: "temperature", Reason: "must be non-negative"}
	}
	return &ConstantCooler{temp: temp}, nil
}

func (c *ConstantCooler) Temp() float64 { return c.temp }
func (c *ConstantCooler) Cool()         {}
func (c *ConstantCooler) Reset()        {}
