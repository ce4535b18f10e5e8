// Package telemetry provides observers that record solver progress: CSV files,
// JSONL traces, Prometheus metrics and rate-limited log lines.
package telemetry

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoFile is returned when a CSVSaver is written to before Reset opened a file.
var ErrNoFile = errors.New("csv saver has no open file")

// CSVRecorder renders a candidate as one CSV row. index is the iteration number.
type CSVRecorder interface {
	CSVRecord(index int) []string
}

// CSVSaver writes rows to one CSV file at a time. Reset closes the current file and
// starts another. Safe for concurrent use.
type CSVSaver struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	w      *csv.Writer
	path   string
	header []string
}

// NewCSVSaver opens path and writes header as its first row. An empty path returns a
// saver with no file; call Reset before saving.
func NewCSVSaver(path string, header []string) (*CSVSaver, error) {
	s := &CSVSaver{}
	if path == "" {
		s.header = header
		return s, nil
	}
	if err := s.Reset(path, header); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset flushes and closes the current file, then truncates or creates path.
// A nil header reuses the previous one; an empty header writes none.
func (s *CSVSaver) Reset(path string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}
	if header != nil {
		s.header = header
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create csv directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}

	s.file = file
	s.buf = bufio.NewWriter(file)
	s.w = csv.NewWriter(s.buf)
	s.path = path

	if len(s.header) > 0 {
		if err := s.w.Write(s.header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	return nil
}

// SaveElement buffers one row for element.
func (s *CSVSaver) SaveElement(element CSVRecorder, index int) error {
	return s.SaveRow(element.CSVRecord(index))
}

// SaveRow buffers a raw row.
func (s *CSVSaver) SaveRow(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return ErrNoFile
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// Flush pushes buffered rows to the file. Flushing a saver without a file is a no-op.
func (s *CSVSaver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *CSVSaver) flushLocked() error {
	if s.w == nil {
		return nil
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv writer: %w", err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv file: %w", err)
	}
	return nil
}

// Close flushes and closes the current file.
func (s *CSVSaver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *CSVSaver) closeLocked() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.flushLocked()
	closeErr := s.file.Close()
	s.file, s.buf, s.w = nil, nil, nil
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close csv file: %w", closeErr)
	}
	return nil
}

// Path returns the file currently written to.
func (s *CSVSaver) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}
