package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpipulse/internal/dataset"
)

// chdir switches into a clean directory so no stray config.yaml is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultSources(), cfg.Dataset.Sources)
	assert.Equal(t, DefaultMergeConcurrency, cfg.Dataset.Concurrency)
	assert.Equal(t, NationwideRegion, cfg.Dataset.NationwideRegion)
	assert.True(t, cfg.Dataset.Watch)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yamlConfig := `
server:
  port: 9090
  read_timeout: 5s
logging:
  level: debug
dataset:
  concurrency: 2
  head_rows: 25
  sources:
    - id: indices
      path: Indices-2025-06.csv
      namespace: Indices
    - id: sales
      path: Sales-2025-06.csv
`
	configFile := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(yamlConfig), 0644))
	t.Setenv(EnvConfigFile, configFile)
	t.Setenv("HPI_SERVER_PORT", "7070")
	t.Setenv("HPI_DATASET_WATCH", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout, "file overrides default")
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "default kept")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Dataset.Concurrency)
	assert.Equal(t, 25, cfg.Dataset.HeadRows)
	assert.False(t, cfg.Dataset.Watch)
	assert.Equal(t, []dataset.Source{
		{ID: "indices", Path: "Indices-2025-06.csv", Namespace: "Indices"},
		{ID: "sales", Path: "Sales-2025-06.csv"},
	}, cfg.Dataset.Sources)
}

func TestLoadSourceSpecsFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvConfigFile, "")
	t.Setenv("HPI_DATASET_SOURCES", "Indices=Indices-2025-06.csv,sales:Sales=Sales-2025-06.csv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []dataset.Source{
		{Path: "Indices-2025-06.csv", Namespace: "Indices"},
		{ID: "sales", Path: "Sales-2025-06.csv", Namespace: "Sales"},
	}, cfg.Dataset.Sources)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"HPI_SERVER_PORT": "70000"}},
		{"zero concurrency", map[string]string{"HPI_DATASET_CONCURRENCY": "0"}},
		{"unknown log level", map[string]string{"HPI_LOGGING_LEVEL": "loud"}},
		{"clashing namespaces", map[string]string{"HPI_DATASET_SOURCES": "Indices-2025-06.csv,Indices-seasonally-adjusted-2025-06.csv"}},
		{"escaping path", map[string]string{"HPI_DATASET_SOURCES": "../secret.csv"}},
		{"bad duration", map[string]string{"HPI_SERVER_READ_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(EnvConfigFile, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateSources(t *testing.T) {
	assert.NoError(t, ValidateSources(DefaultSources()))
	assert.Error(t, ValidateSources(nil))
	assert.Error(t, ValidateSources([]dataset.Source{{Path: "a.csv"}, {Path: "a.csv", Namespace: "Other"}}), "duplicate name")
	assert.Error(t, ValidateSources([]dataset.Source{{Path: "/abs/a.csv"}}))
	assert.Error(t, ValidateSources([]dataset.Source{{Path: "."}}))
}

func TestParseSourceSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    dataset.Source
		wantErr bool
	}{
		{spec: "Sales-2025-06.csv", want: dataset.Source{Path: "Sales-2025-06.csv"}},
		{spec: " Sales = Sales-2025-06.csv ", want: dataset.Source{Path: "Sales-2025-06.csv", Namespace: "Sales"}},
		{spec: "sales:Sales=sub/Sales.csv", want: dataset.Source{ID: "sales", Path: "sub/Sales.csv", Namespace: "Sales"}},
		{spec: "", wantErr: true},
		{spec: "Sales=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseSourceSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = base

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, DefaultDataDir), paths.DataDir)
	assert.Equal(t, filepath.Join(base, DefaultLogsDir), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, DefaultDataDir, "Sales-2025-06.csv"), paths.DataFile("Sales-2025-06.csv"))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.DataDir))
	assert.True(t, FileExists(paths.LogsDir))

	abs := filepath.Join(base, "elsewhere")
	cfg.Paths.DataDir = abs
	assert.Equal(t, abs, cfg.GetDataDir())
}
