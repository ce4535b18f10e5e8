package opt

import (
	"errors"
	"fmt"
	"log/slog"
)

// Snapshot is what an engine hands to observers after every iteration.
// Best and Current are borrowed: observers must not keep or modify them.
// On the terminal call Best and Current are zero values.
type Snapshot[P Problem, S any] struct {
	Iteration   int
	Problem     P
	Best        S
	Current     S
	BestScore   float64
	Temperature float64 // zero for engines without a schedule
	Terminal    bool
}

// Observer receives per-iteration telemetry. Errors are advisory: engines log them
// and carry on.
type Observer[P Problem, S any] interface {
	Observe(snap Snapshot[P, S]) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc[P Problem, S any] func(snap Snapshot[P, S]) error

func (f ObserverFunc[P, S]) Observe(snap Snapshot[P, S]) error {
	return f(snap)
}

type multiObserver[P Problem, S any] []Observer[P, S]

func (m multiObserver[P, S]) Observe(snap Snapshot[P, S]) error {
	var errs []error
	for _, o := range m {
		if err := o.Observe(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Observers fans a snapshot out to every non-nil observer in order.
func Observers[P Problem, S any](observers ...Observer[P, S]) Observer[P, S] {
	m := make(multiObserver[P, S], 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

// Notify delivers a snapshot and swallows failures. A panicking observer is recovered.
func Notify[P Problem, S any](logger *slog.Logger, o Observer[P, S], snap Snapshot[P, S]) {
	if o == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Observer panicked", "iteration", snap.Iteration, "terminal", snap.Terminal, "error", fmt.Sprint(r))
		}
	}()
	if err := o.Observe(snap); err != nil {
		logger.Warn("Observer failed", "iteration", snap.Iteration, "terminal", snap.Terminal, "error", err)
	}
}
