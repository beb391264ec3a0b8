package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":5000"
database:
  path: "/tmp/connectify.db"
auth:
  jwt_secret: "test-secret"
  token_ttl: "24h"
uploads:
  dir: "/tmp/uploads"
logging:
  level: "debug"
  format: "json"
metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/connectify.db", cfg.Database.Path)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/tmp/uploads", cfg.Uploads.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":5000"
database:
  path: "/tmp/connectify.db"
auth:
  jwt_secret: "test-secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, int64(5<<20), cfg.Uploads.MaxSizeBytes)
	assert.Equal(t, float64(10), cfg.Realtime.SendRate)
	assert.Equal(t, 20, cfg.Realtime.SendBurst)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CONNECTIFY_TEST_SECRET", "expanded-secret")

	path := writeConfig(t, `
server:
  http_addr: ":5000"
database:
  path: "/tmp/connectify.db"
auth:
  jwt_secret: "${CONNECTIFY_TEST_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.Auth.JWTSecret)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "/tmp/connectify.db"
auth:
  jwt_secret: "s"
`,
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: ":5000"
auth:
  jwt_secret: "s"
`,
		},
		{
			name: "missing jwt secret",
			content: `
server:
  http_addr: ":5000"
database:
  path: "/tmp/connectify.db"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadTokenTTL(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":5000"
database:
  path: "/tmp/connectify.db"
auth:
  jwt_secret: "s"
  token_ttl: "not-a-duration"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
