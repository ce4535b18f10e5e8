// Package store persists finished runs and their per-iteration traces.
package store

// Store defines persistence for run records.
// Implementations must be safe for concurrent use.
//
// Error conventions:
//   - Return ErrNotFound when a run does not exist (Load/Delete)
//   - Wrap underlying I/O or serialization errors with context
type Store interface {
	// SaveRecord atomically writes the record of a run, replacing any previous one.
	SaveRecord(record *Record) error

	// LoadRecord reads the record of runID.
	LoadRecord(runID string) (*Record, error)

	// ListRecords returns summaries of every readable record. Corrupt records are skipped.
	ListRecords() ([]RecordInfo, error)

	// DeleteRecord removes the run directory with its record and trace.
	DeleteRecord(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
