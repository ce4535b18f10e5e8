package telemetry

import (
	"fmt"
	"path/filepath"

	"github.com/cwbudde/optima/internal/opt"
)

// Insight writes the best candidate of every iteration to <dir>/<problem id>.csv.
// A new file starts whenever the problem id changes; the terminal call flushes.
type Insight[P opt.Problem, S CSVRecorder] struct {
	saver   *CSVSaver
	dir     string
	current uint32
	started bool
}

// NewInsight creates an insight observer writing into dir with the given header.
func NewInsight[P opt.Problem, S CSVRecorder](dir string, header []string) *Insight[P, S] {
	// No file until the first problem id is seen
	return &Insight[P, S]{saver: &CSVSaver{header: header}, dir: dir}
}

func (in *Insight[P, S]) Observe(snap opt.Snapshot[P, S]) error {
	if snap.Terminal {
		return in.saver.Flush()
	}

	id := snap.Problem.ID()
	if !in.started || id != in.current {
		path := filepath.Join(in.dir, fmt.Sprintf("%d.csv", id))
		if err := in.saver.Reset(path, nil); err != nil {
			return err
		}
		in.current = id
		in.started = true
	}
	return in.saver.SaveElement(snap.Best, snap.Iteration)
}

// Path returns the file currently written to.
func (in *Insight[P, S]) Path() string {
	return in.saver.Path()
}

// Close flushes and closes the current file.
func (in *Insight[P, S]) Close() error {
	return in.saver.Close()
}
