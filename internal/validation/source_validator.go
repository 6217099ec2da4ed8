package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hpipulse/internal/dataset"
	"hpipulse/internal/files"
)

// Sentinel errors returned by SourceValidator.
var (
	ErrNotExist     = errors.New("does not exist")
	ErrNotDirectory = errors.New("not a directory")
	ErrNotFile      = errors.New("is a directory, not a file")
	ErrEmptyFile    = errors.New("file is empty")
	ErrUnsupported  = errors.New("unsupported extract type")
	ErrTempFile     = errors.New("temporary Excel file")
)

// SourceValidator checks directories and extract files on disk
type SourceValidator struct {
	logger *slog.Logger
}

// NewSourceValidator creates a new source validator
func NewSourceValidator(logger *slog.Logger) *SourceValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceValidator{logger: logger.With(slog.String("component", "validation"))}
}

// ValidateDataDirectory checks that dir exists and is a directory.
func (v *SourceValidator) ValidateDataDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Data directory does not exist", slog.String("directory", dir))
		return fmt.Errorf("data directory %s: %w", dir, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Data path is not a directory", slog.String("path", dir))
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// ValidateWritableDirectory creates dir if needed and checks a file can be
// written into it.
func (v *SourceValidator) ValidateWritableDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// ValidateSourceFile checks that path is a non-empty extract file that the
// dataset reader can open.
func (v *SourceValidator) ValidateSourceFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotFile)
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%s: %w", path, ErrTempFile)
	}
	if !files.IsExtract(base) {
		return fmt.Errorf("%s (extension %q): %w", path, filepath.Ext(base), ErrUnsupported)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return nil
}

// ValidateSources checks every source under dataDir and returns one error
// per problem, in source order.
func (v *SourceValidator) ValidateSources(dataDir string, sources []dataset.Source) []error {
	var problems []error
	for _, src := range sources {
		path := src.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, filepath.FromSlash(path))
		}
		if err := v.ValidateSourceFile(path); err != nil {
			v.logger.Warn("Source failed validation",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
			problems = append(problems, fmt.Errorf("source %s: %w", src.Name(), err))
		}
	}
	return problems
}
