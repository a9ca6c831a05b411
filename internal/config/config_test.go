package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_LocalModeDefaults(t *testing.T) {
	p := writeYAML(t, `
auth:
  mode: local
jwt:
  signing_key: `+testKey+`
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, c.Auth.Mode)
	assert.Equal(t, 24*time.Hour, c.JWT.TTL)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, DefaultPublicPaths, c.Auth.PublicPaths)
	assert.Equal(t, 3, c.Supabase.ProfileFetchAttempts)
	assert.Equal(t, time.Second, c.Supabase.ProfileFetchDelay)
	assert.Equal(t, 8, c.Security.PasswordPolicy.MinLength)
	assert.True(t, c.Security.PasswordPolicy.RequireSymbol)
}

func TestLoad_ShortSigningKeyRejected(t *testing.T) {
	p := writeYAML(t, `
auth:
  mode: local
jwt:
  signing_key: short
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key")
}

func TestLoad_RemoteModeRequiresProvider(t *testing.T) {
	p := writeYAML(t, `
auth:
  mode: remote
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supabase.url")
	assert.Contains(t, err.Error(), "supabase.api_key")
}

func TestLoad_UnknownModeRejected(t *testing.T) {
	p := writeYAML(t, `
auth:
  mode: both
jwt:
  signing_key: `+testKey+`
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.mode")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_API_KEY", "anon")
	t.Setenv("SUPABASE_TIMEOUT", "3s")
	t.Setenv("AUTH_PUBLIC_PATHS", "GET /healthz, POST /api/auth/login")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, c.Auth.Mode)
	assert.Equal(t, 3*time.Second, c.Supabase.Timeout)
	assert.Equal(t, []string{"GET /healthz", "POST /api/auth/login"}, c.Auth.PublicPaths)
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	p := writeYAML(t, `
jwt:
  signing_key: `+testKey+`
storage:
  driver: postgres
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dsn")
}

func TestLoad_BlacklistPathRelativeToFile(t *testing.T) {
	p := writeYAML(t, `
jwt:
  signing_key: `+testKey+`
security:
  password_blacklist_path: blacklist.txt
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "blacklist.txt"), c.Security.PasswordBlacklistPath)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", testKey)
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, c.Server.TrustedProxies)
	assert.NotContains(t, c.Auth.PublicPaths, "GET /metrics")

	t.Setenv("SERVER_TRUSTED_PROXIES", "lb.internal")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.trusted_proxies")
}
