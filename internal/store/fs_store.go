package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FSStore keeps one directory per run: <baseDir>/runs/<runID>/{result.json,trace.jsonl}.
// Writes go through a temp file and a rename, so concurrent readers never see a
// partial record.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the store root.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// RunDir returns the directory of a run.
func (fs *FSStore) RunDir(runID string) string {
	return runDir(fs.baseDir, runID)
}

func runDir(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID)
}

func (fs *FSStore) recordPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "result.json")
}

func (fs *FSStore) SaveRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	dir := fs.RunDir(record.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	final := fs.recordPath(record.RunID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp record file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename record file: %w", err)
	}

	slog.Debug("Run record saved", "run_id", record.RunID, "path", final)
	return nil
}

func (fs *FSStore) LoadRecord(runID string) (*Record, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.recordPath(runID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}
	return &record, nil
}

// ListRecords returns summaries ordered by timestamp, newest first.
func (fs *FSStore) ListRecords() ([]RecordInfo, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, "runs"))
	if errors.Is(err, os.ErrNotExist) {
		return []RecordInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := make([]RecordInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runID := entry.Name()
		if _, err := os.Stat(fs.recordPath(runID)); err != nil {
			continue
		}
		record, err := fs.LoadRecord(runID)
		if err != nil {
			slog.Warn("Skipping unreadable run record", "run_id", runID, "error", err)
			continue
		}
		infos = append(infos, record.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed run records", "count", len(infos))
	return infos, nil
}

func (fs *FSStore) DeleteRecord(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	dir := fs.RunDir(runID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "run_id", runID, "path", dir)
	return nil
}
