package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories the application touches.
type Paths struct {
	BaseDir string
	DataDir string
	LogsDir string
}

// ResolvePaths resolves the configured directories to absolute paths.
func (c *Config) ResolvePaths() (*Paths, error) {
	dataDir, err := filepath.Abs(c.GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	logsDir, err := filepath.Abs(c.GetLogsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir: %w", err)
	}
	return &Paths{
		BaseDir: filepath.Dir(dataDir),
		DataDir: dataDir,
		LogsDir: logsDir,
	}, nil
}

// EnsureDirectories creates the data and logs directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataFile returns the path of an extract inside the data directory.
func (p *Paths) DataFile(name string) string {
	return filepath.Join(p.DataDir, filepath.FromSlash(name))
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("logs_dir", p.LogsDir),
		slog.Bool("data_dir_exists", FileExists(p.DataDir)))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
