package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so only
// explicit files and env vars are picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "parquet", cfg.Export.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadLayers(t *testing.T) {
	dir := isolate(t)

	project := "log:\n  level: debug\nregistry:\n  aliases:\n    camunda:Connector: ServiceTask\nstore:\n  backend: redis\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".bpmnctx.yaml"), []byte(project), 0o644))

	explicit := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("store:\n  backend: s3\n  s3:\n    bucket: models\n  retry:\n    attempts: 5\nwatch:\n  debounce: 2s\n"), 0o644))

	t.Setenv("BPMNCTX_STORE_BACKEND", "multi")
	t.Setenv("BPMNCTX_WORKERS", "3")

	m := NewManager()
	require.NoError(t, m.Load(explicit))
	cfg := m.Get()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, map[string]string{"camunda:Connector": "ServiceTask"}, cfg.Registry.Aliases)
	assert.Equal(t, "s3", cfg.Store.Backend, "explicit file wins over env")
	assert.Equal(t, "models", cfg.Store.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Store.S3.Region, "defaults survive partial files")
	assert.Equal(t, 5, cfg.Store.Retry.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Store.Retry.Delay)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Contains(t, m.GetPaths(), explicit)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	t.Run("missing explicit file", func(t *testing.T) {
		err := NewManager().Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("broken project file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".bpmnctx.yaml"), []byte("log: [unclosed"), 0o644))
		require.Error(t, NewManager().Load())
	})
}

func TestSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "config.yaml")

	m := NewManager()
	m.Get().Export.Format = "xlsx"
	require.NoError(t, m.Save(path))

	reloaded := NewManager()
	require.NoError(t, reloaded.Load(path))
	assert.Equal(t, "xlsx", reloaded.Get().Export.Format)
}
