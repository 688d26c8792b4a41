package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variables carrying credentials. Their names are shared with
// the existing deployments of each gateway.
const (
	EnvGHLAPIKey             = "GHL_API_KEY"
	EnvGHLLocationID         = "GHL_LOCATION_ID"
	EnvMetaAccessToken       = "META_ACCESS_TOKEN"
	EnvMetaAdAccountID       = "META_AD_ACCOUNT_ID"
	EnvZapierAPIKey          = "ZAPIER_API_KEY"
	EnvGoogleCredentialsPath = "GOOGLE_CREDENTIALS_PATH"
	EnvGoogleTokenPath       = "GOOGLE_TOKEN_PATH"
	EnvRPCSharedSecret       = "APIGATE_RPC_SHARED_SECRET"
)

var credentialEnv = map[string]string{
	"ghl.api_key":             EnvGHLAPIKey,
	"ghl.location_id":         EnvGHLLocationID,
	"meta.access_token":       EnvMetaAccessToken,
	"meta.ad_account_id":      EnvMetaAdAccountID,
	"zapier.api_key":          EnvZapierAPIKey,
	"sheets.credentials_path": EnvGoogleCredentialsPath,
	"sheets.token_path":       EnvGoogleTokenPath,
}

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load layers defaults, the optional JSON config file and the environment.
func (l *Loader) Load() (*Config, error) {
	v := l.newViper()

	configPath := l.GetConfigPath()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if l.configPath != "" {
			// an explicitly requested file must exist
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func (l *Loader) newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("ghl.base_url", defaults.GHL.BaseURL)
	v.SetDefault("ghl.api_version", defaults.GHL.APIVersion)
	v.SetDefault("meta.base_url", defaults.Meta.BaseURL)
	v.SetDefault("meta.api_version", defaults.Meta.APIVersion)
	v.SetDefault("meta.max_insight_pages", defaults.Meta.MaxInsightPages)
	v.SetDefault("zapier.base_url", defaults.Zapier.BaseURL)
	v.SetDefault("zapier.api_version", defaults.Zapier.APIVersion)
	v.SetDefault("sheets.endpoint", "")
	v.SetDefault("server.transport", defaults.Server.Transport)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.path", defaults.Server.Path)
	v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	v.SetDefault("rpc.requests_per_minute", defaults.RPC.RequestsPerMinute)
	v.SetDefault("rpc.max_concurrent", defaults.RPC.MaxConcurrent)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.pretty", false)
	v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
	v.SetDefault("logging.redaction", defaults.Logging.Redaction)
	v.SetDefault("tool_timeout", defaults.ToolTimeout)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("audit_log", "")

	// APIGATE_LOGGING_LEVEL, APIGATE_SERVER_ADDR, ...
	v.SetEnvPrefix("APIGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range credentialEnv {
		_ = v.BindEnv(key, env, "APIGATE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	v.SetDefault("sheets.credentials_path", defaults.Sheets.CredentialsPath)
	v.SetDefault("sheets.token_path", defaults.Sheets.TokenPath)
	_ = v.BindEnv("rpc.shared_secret", EnvRPCSharedSecret)

	return v
}

// Save writes the non-credential settings of cfg to the config file.
// Credentials stay in the environment.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("ghl.base_url", cfg.GHL.BaseURL)
	v.Set("ghl.api_version", cfg.GHL.APIVersion)
	v.Set("meta.base_url", cfg.Meta.BaseURL)
	v.Set("meta.api_version", cfg.Meta.APIVersion)
	v.Set("meta.max_insight_pages", cfg.Meta.MaxInsightPages)
	v.Set("zapier.base_url", cfg.Zapier.BaseURL)
	v.Set("zapier.api_version", cfg.Zapier.APIVersion)
	v.Set("sheets.credentials_path", cfg.Sheets.CredentialsPath)
	v.Set("sheets.token_path", cfg.Sheets.TokenPath)
	v.Set("server", cfg.Server)
	v.Set("rpc.requests_per_minute", cfg.RPC.RequestsPerMinute)
	v.Set("rpc.max_concurrent", cfg.RPC.MaxConcurrent)
	v.Set("logging", cfg.Logging)
	v.Set("tool_timeout", cfg.ToolTimeout.String())
	v.Set("http_timeout", cfg.HTTPTimeout.String())
	v.Set("audit_log", cfg.AuditLog)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".apigate", "apigate.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
