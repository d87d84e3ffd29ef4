package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvOverrides(t *testing.T) {
	t.Setenv("LISTMANAGER_AUTH__TOKEN", "secret-token")
	t.Setenv("LISTMANAGER_DATABASE__URL", "postgres://localhost:5432/listmanager")
	t.Setenv("LISTMANAGER_SERVER__PORT", "8888")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Auth.Token)
	assert.Equal(t, "postgres://localhost:5432/listmanager", cfg.Database.URL)
	assert.Equal(t, "8888", cfg.Server.Port)

	// Untouched defaults survive.
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 50000, cfg.Notify.RecipientLimit)
	assert.Equal(t, "https://api.notification.canada.ca", cfg.Notify.BaseURL)
	assert.True(t, cfg.Database.Migrate)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
auth:
  token: file-token
database:
  url: postgres://localhost:5432/listmanager
base_url: https://lists.example.com
redirect_allow_list:
  - example.com
  - alerts.example.com
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Auth.Token)
	assert.Equal(t, "https://lists.example.com", cfg.BaseURL)
	assert.Equal(t, []string{"example.com", "alerts.example.com"}, cfg.RedirectAllowList)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
auth:
  token: file-token
database:
  url: postgres://localhost:5432/listmanager
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("LISTMANAGER_AUTH__TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Auth.Token)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("LISTMANAGER_DATABASE__URL", "postgres://localhost:5432/listmanager")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.token")
}
