package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "findme.sqlite3", cfg.DBPath)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FINDME_ADDR", "127.0.0.1:9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FINDME_TOKEN_TTL", "1h30m")
	t.Setenv("ADMIN_EMAIL", "root@example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "root@example.org", cfg.AdminEmail)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\ndb: /var/lib/findme.db\nlog_level: debug\n"), 0o600))
	t.Setenv("FINDME_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "/var/lib/findme.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over file")
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("FINDME_TOKEN_TTL", "-1h")
	_, err := Load("")
	assert.ErrorContains(t, err, "token ttl")
}

func TestStringMasksSecret(t *testing.T) {
	cfg := Config{JWTSecret: "topsecret"}
	assert.NotContains(t, cfg.String(), "topsecret")
	assert.Contains(t, cfg.String(), "jwt_secret=***")

	assert.Contains(t, Config{}.String(), "jwt_secret=<generated>")
}

func TestUsageListsVariables(t *testing.T) {
	assert.Contains(t, Usage(), "FINDME_ADDR")
}
