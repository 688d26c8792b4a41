package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateBaseURL(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateBaseURL("https://graph.facebook.com", "meta.base_url"))
	assert.NoError(t, v.ValidateBaseURL("http://127.0.0.1:8080", "meta.base_url"))
	assert.Error(t, v.ValidateBaseURL("", "meta.base_url"))
	assert.Error(t, v.ValidateBaseURL("graph.facebook.com", "meta.base_url"))
	assert.Error(t, v.ValidateBaseURL("ftp://files.example.com", "meta.base_url"))
}

func TestValidator_ValidateAdAccountID(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateAdAccountID("act_1234567890"))
	assert.NoError(t, v.ValidateAdAccountID("1234567890"))
	assert.NoError(t, v.ValidateAdAccountID(""))
	assert.Error(t, v.ValidateAdAccountID("act_abc"))
}

func TestValidator_ValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("verbose"))
}

func TestValidator_ValidateConfig(t *testing.T) {
	v := NewValidator()

	assert.Empty(t, v.ValidateConfig(DefaultConfig()))

	cfg := DefaultConfig()
	cfg.Server.Transport = TransportHTTP
	cfg.Server.Addr = "no-port"
	cfg.Server.Path = "mcp"
	cfg.Meta.AdAccountID = "bogus"
	cfg.ToolTimeout = 0
	cfg.Logging.Level = "loud"

	errs := v.ValidateConfig(cfg)
	assert.Len(t, errs, 5)
}
