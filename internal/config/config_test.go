package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 48*time.Hour, cfg.Compliance.ActionSLA)
	assert.True(t, cfg.Compliance.UnansweredIsFailure)
	assert.Equal(t, "compliance-evidence", cfg.MinIO.Bucket)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadFile_YAMLAndEnvOverride(t *testing.T) {
	yaml := `
database:
  host: db.internal
  dbname: audits
compliance:
  action_sla: 24h
  unanswered_is_failure: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("COMPLIANCE_ACTION_SLA", "72h")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "audits", cfg.Database.DBName)
	assert.Equal(t, 72*time.Hour, cfg.Compliance.ActionSLA)
	assert.False(t, cfg.Compliance.UnansweredIsFailure)
	assert.Contains(t, cfg.Database.DSN(), "host=db.override")
}

func TestRedisAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
