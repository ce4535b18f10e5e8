// Package stop provides termination conditions for the search engines.
//
// Engines call ShouldStop exactly once per iteration, after the acceptance decision
// and the best-so-far update, passing the direction-normalized score of the best
// candidate. Reset is called at the start of every solve.
//
// Feasible candidates outrank infeasible ones, so the best score drops once when the
// first feasible candidate replaces an infeasible best. Engines call Rebase right
// before that ShouldStop so score-tracking criteria start over from the new best.
package stop

import (
	"context"
	"time"

	"github.com/cwbudde/optima/internal/opt"
)

// Criteria decides when an engine must halt.
type Criteria interface {
	ShouldStop(bestScore float64) bool
	Reset()
}

// Rebaser is implemented by criteria that remember past best scores.
type Rebaser interface {
	// Rebase forgets the remembered best; the next score counts as an improvement.
	Rebase()
}

// Rebase calls c.Rebase when c implements Rebaser.
func Rebase(c Criteria) {
	if r, ok := c.(Rebaser); ok {
		r.Rebase()
	}
}

// MaxSteps halts after a fixed number of invocations.
type MaxSteps struct {
	limit int
	steps int
}

// NewMaxSteps creates a criterion that stops after n iterations.
func NewMaxSteps(n int) (*MaxSteps, error) {
	if n <= 0 {
		return nil, &opt.ConfigError{Field: "max_steps", Reason: "must be positive"}
	}
	return &MaxSteps{limit: n}, nil
}

func (m *MaxSteps) ShouldStop(float64) bool {
	m.steps++
	return m.steps >= m.limit
}

func (m *MaxSteps) Reset() {
	m.steps = 0
}

// Steps returns the number of invocations since the last reset.
func (m *MaxSteps) Steps() int {
	return m.steps
}

// Deadline halts once a wall-clock budget measured from Reset is spent.
type Deadline struct {
	budget time.Duration
	now    func() time.Time
	start  time.Time
}

// NewDeadline creates a wall-clock criterion.
func NewDeadline(budget time.Duration) (*Deadline, error) {
	if budget <= 0 {
		return nil, &opt.ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	d := &Deadline{budget: budget, now: time.Now}
	d.Reset()
	return d, nil
}

func (d *Deadline) ShouldStop(float64) bool {
	return d.now().Sub(d.start) >= d.budget
}

func (d *Deadline) Reset() {
	d.start = d.now()
}

// Context halts as soon as ctx is done. It is how callers cancel a running solve;
// the engine still stops at an iteration boundary.
type Context struct {
	ctx context.Context
}

// NewContext creates a cancellation criterion.
func NewContext(ctx context.Context) *Context {
	return &Context{ctx: ctx}
}

func (c *Context) ShouldStop(float64) bool {
	return c.ctx.Err() != nil
}

func (c *Context) Reset() {}

type anyOf []Criteria

// Any halts when at least one of the criteria does. Every criterion is consulted on
// every call so their counters stay in step.
func Any(criteria ...Criteria) Criteria {
	c := make(anyOf, 0, len(criteria))
	for _, cr := range criteria {
		if cr != nil {
			c = append(c, cr)
		}
	}
	return c
}

func (a anyOf) ShouldStop(bestScore float64) bool {
	stop := false
	for _, c := range a {
		if c.ShouldStop(bestScore) {
			stop = true
		}
	}
	return stop
}

func (a anyOf) Rebase() {
	for _, c := range a {
		Rebase(c)
	}
}

func (a anyOf) Reset() {
	for _, c := range a {
		c.Reset()
	}
}
