package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("TOKEN_TTL", "24h")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	require.Equal(t, "0.0.0.0:9191", cfg.HTTP.Addr())
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "compliance-api", cfg.Auth.Issuer)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
env: test
http:
  port: "8181"
auth:
  jwt_secret: file-secret
  token_ttl: 1h
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Env)
	require.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	require.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	// Explicitly unset; cleanenv must reject the missing required value.
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load("")
	require.Error(t, err)
}
