package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_EnvironmentOnly(t *testing.T) {
	t.Setenv(EnvGHLAPIKey, "env-key")
	t.Setenv(EnvGHLLocationID, "env-loc")
	t.Setenv(EnvMetaAdAccountID, "act_42")
	t.Setenv("APIGATE_LOGGING_LEVEL", "debug")
	t.Setenv("APIGATE_TOOL_TIMEOUT", "45s")

	// a path that does not exist under an explicit directory is an error,
	// so point at the home default by leaving the path empty
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.GHL.APIKey)
	assert.Equal(t, "env-loc", cfg.GHL.LocationID)
	assert.Equal(t, "act_42", cfg.Meta.AdAccountID)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 45*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "https://services.leadconnectorhq.com", cfg.GHL.BaseURL)
	assert.NoError(t, cfg.Validate(GatewayGHL))
}

func TestLoader_Load_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apigate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"zapier": {"api_key": "file-key", "base_url": "http://127.0.0.1:9999"},
		"meta": {"max_insight_pages": 3},
		"server": {"transport": "http", "addr": "0.0.0.0:9000"}
	}`), 0600))

	t.Setenv(EnvZapierAPIKey, "env-wins")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-wins", cfg.Zapier.APIKey)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Zapier.BaseURL)
	assert.Equal(t, 3, cfg.Meta.MaxInsightPages)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "/mcp", cfg.Server.Path)
}

func TestLoader_Load_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoader_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "apigate.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.GHL.APIKey = "never-written"
	cfg.Meta.MaxInsightPages = 4
	cfg.Logging.Level = "warn"
	require.NoError(t, loader.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Meta.MaxInsightPages)
	assert.Equal(t, "warn", reloaded.Logging.Level)
	assert.Equal(t, 30*time.Second, reloaded.ToolTimeout)
}

func TestLoader_GetConfigPath(t *testing.T) {
	assert.Equal(t, "/tmp/x.json", NewLoader("/tmp/x.json").GetConfigPath())

	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".apigate", "apigate.json"), NewLoader("").GetConfigPath())
}
