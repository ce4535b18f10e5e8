package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEntry is one line of trace.jsonl.
type TraceEntry struct {
	Iteration int     `json:"iteration"`
	BestScore float64 `json:"bestScore"`

	// Evaluation of the engine's current candidate (the generation best for genetic runs).
	Value    float64 `json:"value"`
	Penalty  float64 `json:"penalty"`
	Feasible bool    `json:"feasible"`

	// Temperature is zero for engines without a cooling schedule.
	Temperature float64 `json:"temperature,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter appends entries to a run's JSONL trace. Safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter opens <baseDir>/runs/<runID>/trace.jsonl, truncating it unless
// appendMode is set.
func NewTraceWriter(baseDir, runID string, appendMode bool) (*TraceWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	dir := runDir(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl")
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write buffers one entry. It reaches disk on Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

func (tw *TraceWriter) Path() string {
	return tw.path
}

// ReadTrace loads every entry of a run's trace.
func ReadTrace(baseDir, runID string) ([]TraceEntry, error) {
	file, err := os.Open(filepath.Join(runDir(baseDir, runID), "trace.jsonl"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	return decodeTrace(file)
}

func decodeTrace(r io.Reader) ([]TraceEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []TraceEntry
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	return entries, nil
}
