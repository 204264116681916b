package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
postgres:
  dsn: postgres://file
http:
  address: ":9000"
groups:
  cluster_senior_staff: false
  senior_staff_stride: 2
`), 0o600))

	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_ADDRESS", ":9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file", cfg.Postgres.DSN)
	assert.Equal(t, ":9100", cfg.HTTP.Address)
	assert.Equal(t, 20, cfg.HTTP.RateBurst)
	assert.Equal(t, 5, cfg.HTTP.EngineRateBurst)
	assert.False(t, cfg.GeneratorOptions().ClusterSeniorStaff)
	assert.Equal(t, 2, cfg.GeneratorOptions().SeniorStaffStride)
	assert.Equal(t, 4, cfg.Queue.MaxWorkers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(missing)
		assert.Error(t, err)
	})

	t.Run("reads variables", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("QUEUE_MAX_WORKERS", "0")
		t.Setenv("GROUPS_SENIOR_STAFF_STRIDE", "3")

		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
		assert.Equal(t, 0, cfg.Queue.MaxWorkers)
		assert.Equal(t, 3, cfg.Groups.SeniorStaffStride)
		assert.True(t, cfg.Groups.ClusterSeniorStaff)
	})

	t.Run("rejects malformed numbers", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("TRACE_SAMPLE_RATE", "lots")
		_, err := LoadConfig(missing)
		assert.ErrorContains(t, err, "TRACE_SAMPLE_RATE")
	})
}
