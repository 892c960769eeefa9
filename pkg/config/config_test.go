package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AdminCredentials(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "root", cfg.Admin.Password)
}

func TestDefaultConfig_LLM(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey, "LLM API key should be empty by default")
	assert.Equal(t, 10, cfg.LLM.HistoryTurns)
}

func TestDefaultConfig_Channels(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Channels.WebSocket.Enabled)
	assert.False(t, cfg.Channels.Telegram.Enabled, "Telegram should be disabled by default")
	assert.NotZero(t, cfg.Channels.WebSocket.Port)
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"admin": {"username": "boss"},
		"llm": {"provider": "openai", "model": "gpt-4o"},
		"channels": {"telegram": {"allow_from": [123, "@host"]}}
	}`), 0o600))

	t.Setenv("CIAOHOST_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("CIAOHOST_ADMIN_PASSWORD", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "boss", cfg.Admin.Username)
	assert.Equal(t, "s3cret", cfg.Admin.Password)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, FlexibleStringSlice{"123", "@host"}, cfg.Channels.Telegram.AllowFrom)
	// untouched sections keep their defaults
	assert.Equal(t, 18793, cfg.Channels.WebSocket.Port)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Database.Path = "/tmp/catalog.json"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/catalog.json", loaded.DatabasePath())
}

func TestDatabasePath_DefaultsToRuntimeHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "ciao-home")
	t.Setenv(EnvCiaoHostConfig, "")
	t.Setenv(EnvCiaoHostHome, home)

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(home, DefaultDatabaseFile), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(home, "audit.log"), cfg.AuditPath())
}

func TestSeasonsPath_DefaultAndOverride(t *testing.T) {
	home := filepath.Join(t.TempDir(), "ciao-home")
	t.Setenv(EnvCiaoHostConfig, "")
	t.Setenv(EnvCiaoHostHome, home)

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(home, "pricing_seasons.json"), cfg.SeasonsPath())

	cfg.Pricing.SeasonsPath = "/srv/ciaohost/seasons.json"
	assert.Equal(t, "/srv/ciaohost/seasons.json", cfg.SeasonsPath())
}

func TestDefaultConfig_AuditRetention(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
}
