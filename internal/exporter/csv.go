package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures CSV writing behavior
type Options struct {
	// BOMPrefix adds a UTF-8 BOM for Excel compatibility
	BOMPrefix bool
}

// StreamWriter writes CSV records as they are produced
type StreamWriter struct {
	writer  *csv.Writer
	records int
}

// NewStreamWriter writes the optional BOM and the header row to w.
func NewStreamWriter(w io.Writer, headers []string, opts Options) (*StreamWriter, error) {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record %d: %w", s.records, err)
	}
	s.records++
	return nil
}

// Records returns the number of records written, excluding the header.
func (s *StreamWriter) Records() int { return s.records }

// Close flushes buffered records. It does not close the underlying writer.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	return s.writer.Error()
}

// WriteCSV writes headers and records to w.
func WriteCSV(w io.Writer, headers []string, records [][]string, opts Options) error {
	stream, err := NewStreamWriter(w, headers, opts)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := stream.WriteRecord(record); err != nil {
			return err
		}
	}
	return stream.Close()
}

// CSVWriter saves exports under a base directory.
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer for baseDir. Relative paths given to
// WriteFile are resolved against it.
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteFile writes fn's output to filePath, creating parent directories.
// The file is written next to its destination and renamed into place, so a
// failed export never leaves a truncated file behind.
func (w *CSVWriter) WriteFile(filePath string, fn func(io.Writer) error) (string, error) {
	fullPath := w.resolvePath(filePath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	w.logger.Info("Export written", slog.String("path", fullPath))
	return fullPath, nil
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}
