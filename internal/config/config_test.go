package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.ServiceURL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, filepath.Join(dir, "casiers.yml"), cfg.Catalog)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casier.yaml"), []byte(`
serviceUrl: https://docs.example.test
catalog: /etc/casier/casiers.yml
graph: config/graph.yml
redis:
  addr: localhost:6379
  lockTtl: 2m
log:
  level: debug
retry:
  maxRetries: 5
  baseDelay: 250ms
generationTimeout: 90s
clients:
  - id: 42
    name: Acme Industrie
    evaluations: [7, 8]
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.test", cfg.ServiceURL)
	assert.Equal(t, "/api/documents/generate", cfg.GeneratePath, "unset fields keep defaults")
	assert.Equal(t, "/etc/casier/casiers.yml", cfg.Catalog)
	assert.Equal(t, filepath.Join(dir, "config/graph.yml"), cfg.Graph)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, []ClientConfig{{ID: 42, Name: "Acme Industrie", Evaluations: []int64{7, 8}}}, cfg.Clients)
}

func TestLoad_YmlPreferredOverYaml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casier.yml"), []byte("serviceUrl: http://yml\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casier.yaml"), []byte("serviceUrl: http://yaml\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://yml", cfg.ServiceURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casier.yml"), []byte("retry: [unterminated"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casier.yml"), []byte("serviceUrl: http://file\n"), 0o644))
	t.Setenv("CASIER_SERVICE_URL", "http://env")
	t.Setenv("CASIER_DATABASE_DSN", "postgres://casier@localhost/casier")
	t.Setenv("CASIER_MAX_RETRIES", "4")
	t.Setenv("CASIER_GENERATION_TIMEOUT", "30s")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.ServiceURL)
	assert.Equal(t, "postgres://casier@localhost/casier", cfg.DatabaseDSN)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("CASIER_MAX_RETRIES", "three")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestFileSessionStore(t *testing.T) {
	ctx := context.Background()
	store := FileSessionStore{Path: filepath.Join(t.TempDir(), "nested", "session.yml")}

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.ClientID, "missing file yields an empty session")

	eval := int64(7)
	want := &Session{
		ClientID:     42,
		ClientName:   "Acme Industrie",
		EvaluationID: &eval,
		UpdatedAt:    time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
