package telemetry

import (
	"time"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/store"
)

// TraceSink receives trace entries. *store.TraceWriter satisfies it.
type TraceSink interface {
	Write(entry store.TraceEntry) error
	Flush() error
}

// Trace appends one JSONL entry per iteration and flushes on the terminal call.
type Trace[P opt.Problem, S opt.Solution[S]] struct {
	sink TraceSink
	now  func() time.Time
}

func NewTrace[P opt.Problem, S opt.Solution[S]](sink TraceSink) *Trace[P, S] {
	return &Trace[P, S]{sink: sink, now: time.Now}
}

func (t *Trace[P, S]) Observe(snap opt.Snapshot[P, S]) error {
	if snap.Terminal {
		return t.sink.Flush()
	}

	ev := snap.Current.Eval()
	return t.sink.Write(store.TraceEntry{
		Iteration:   snap.Iteration,
		BestScore:   snap.BestScore,
		Value:       ev.Value,
		Penalty:     ev.Penalty,
		Feasible:    ev.Feasible,
		Temperature: snap.Temperature,
		Timestamp:   t.now(),
	})
}
