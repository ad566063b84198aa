package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBuilderConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/fdc.db
source:
  dir: /tmp/data
`)

	cfg, err := LoadBuilderConfig(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fdc.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/data", cfg.Source.Dir)
	assert.Equal(t, int64(100000), cfg.Importer.BatchSize)
	assert.Equal(t, int64(500000), cfg.Importer.CheckpointInterval)
	assert.Equal(t, 4, cfg.Importer.Worker.PoolSize)
	assert.Equal(t, int64(1), cfg.Classifier.DefaultCategoryID)
	assert.False(t, cfg.Verify.Strict)
	assert.False(t, cfg.Debug)
}

func TestLoadBuilderConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
debug: true
database:
  path: build.db
source:
  dir: ./data
importer:
  batch_size: 1000
  checkpoint_interval: 5000
classifier:
  default_category_id: 28
verify:
  strict: true
`)

	cfg, err := LoadBuilderConfig(path, t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, int64(1000), cfg.Importer.BatchSize)
	assert.Equal(t, int64(5000), cfg.Importer.CheckpointInterval)
	assert.Equal(t, int64(28), cfg.Classifier.DefaultCategoryID)
	assert.True(t, cfg.Verify.Strict)
}

func TestLoadBuilderConfigFromEnv(t *testing.T) {
	t.Setenv("FDC_BUILDER_DATABASE_PATH", "/var/lib/fdc.db")
	t.Setenv("FDC_BUILDER_SOURCE_DIR", "/srv/fdc-csv")
	t.Setenv("FDC_BUILDER_IMPORTER_BATCH_SIZE", "2500")
	t.Setenv("FDC_BUILDER_IMPORTER_CHECKPOINT_INTERVAL", "10000")

	// Discovery mode with no config file on the search path: the env vars
	// must carry the whole configuration
	cfg, err := LoadBuilderConfig("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fdc.db", cfg.Database.Path)
	assert.Equal(t, "/srv/fdc-csv", cfg.Source.Dir)
	assert.Equal(t, int64(2500), cfg.Importer.BatchSize)
}

func TestLoadBuilderConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing database path",
			content: `
source:
  dir: /tmp/data
`,
		},
		{
			name: "missing source dir",
			content: `
database:
  path: /tmp/fdc.db
`,
		},
		{
			name: "checkpoint interval below batch size",
			content: `
database:
  path: /tmp/fdc.db
source:
  dir: /tmp/data
importer:
  batch_size: 1000
  checkpoint_interval: 10
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBuilderConfig(writeConfig(t, tt.content), t.TempDir())
			require.Error(t, err)
		})
	}
}

func TestLoadVerifierConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/fdc.db
`)

	cfg, err := LoadVerifierConfig(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fdc.db", cfg.Database.Path)
	assert.True(t, cfg.Verify.Strict, "verify defaults to strict in the standalone program")
}
