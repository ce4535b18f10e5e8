package server

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/google/uuid"
)

// RunState is the lifecycle state of a tracked run.
type RunState string

const (
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// Run is the live view of a solve in progress.
type Run struct {
	ID         string     `json:"id"`
	Engine     string     `json:"engine"`
	ProblemID  uint32     `json:"problemId"`
	State      RunState   `json:"state"`
	Iteration  int        `json:"iteration"`
	BestScore  *float64   `json:"bestScore,omitempty"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`
	Iterations int        `json:"iterations,omitempty"`
}

// RunManager tracks runs of this process. Safe for concurrent use.
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRunManager() *RunManager {
	return &RunManager{runs: make(map[string]*Run)}
}

// Start registers a running solve and returns its id.
func (rm *RunManager) Start(engine string) string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run := &Run{
		ID:        uuid.NewString(),
		Engine:    engine,
		State:     StateRunning,
		StartTime: time.Now(),
	}
	rm.runs[run.ID] = run
	return run.ID
}

// Get returns a copy of the run.
func (rm *RunManager) Get(id string) (Run, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	run, ok := rm.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// List returns copies of all runs, oldest first.
func (rm *RunManager) List() []Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	runs := make([]Run, 0, len(rm.runs))
	for _, run := range rm.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs
}

// Update atomically applies fn to the run.
func (rm *RunManager) Update(id string, fn func(*Run)) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run, ok := rm.runs[id]
	if !ok {
		return fmt.Errorf("run not found: %s", id)
	}
	fn(run)
	return nil
}

// Finish marks the run completed, or failed when err is non-nil.
func (rm *RunManager) Finish(id string, err error) error {
	return rm.Update(id, func(r *Run) {
		now := time.Now()
		r.EndTime = &now
		if err != nil {
			r.State = StateFailed
			r.Error = err.Error()
			return
		}
		r.State = StateCompleted
	})
}

// Tracker returns an observer that mirrors solver snapshots into run id.
func Tracker[P opt.Problem, S any](rm *RunManager, id string) opt.Observer[P, S] {
	return opt.ObserverFunc[P, S](func(snap opt.Snapshot[P, S]) error {
		return rm.Update(id, func(r *Run) {
			r.ProblemID = snap.Problem.ID()
			r.Iteration = snap.Iteration
			if !math.IsNaN(snap.BestScore) && !math.IsInf(snap.BestScore, 0) {
				score := snap.BestScore
				r.BestScore = &score
			}
			if snap.Terminal {
				r.Iterations = snap.Iteration
			}
		})
	})
}
