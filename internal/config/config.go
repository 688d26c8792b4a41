package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/apigate/pkg/toolerr"
)

// Gateway names.
const (
	GatewayGHL    = "ghl"
	GatewayMeta   = "meta"
	GatewayZapier = "zapier"
	GatewaySheets = "sheets"
)

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportWS    = "ws"
)

// Config represents the apigate configuration
type Config struct {
	GHL    GHLConfig    `json:"ghl" mapstructure:"ghl"`
	Meta   MetaConfig   `json:"meta" mapstructure:"meta"`
	Zapier ZapierConfig `json:"zapier" mapstructure:"zapier"`
	Sheets SheetsConfig `json:"sheets" mapstructure:"sheets"`

	Server  ServerConfig  `json:"server" mapstructure:"server"`
	RPC     RPCConfig     `json:"rpc" mapstructure:"rpc"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// ToolTimeout bounds one tool call end to end.
	ToolTimeout time.Duration `json:"tool_timeout" mapstructure:"tool_timeout"`
	// HTTPTimeout bounds one upstream request.
	HTTPTimeout time.Duration `json:"http_timeout" mapstructure:"http_timeout"`

	// AuditLog receives records of state-changing tool calls. Empty means stderr.
	AuditLog string `json:"audit_log" mapstructure:"audit_log"`
}

// GHLConfig holds GoHighLevel credentials
type GHLConfig struct {
	APIKey     string `json:"api_key" mapstructure:"api_key"`
	LocationID string `json:"location_id" mapstructure:"location_id"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
	APIVersion string `json:"api_version" mapstructure:"api_version"`
}

// MetaConfig holds Meta Marketing API credentials
type MetaConfig struct {
	AccessToken     string `json:"access_token" mapstructure:"access_token"`
	AdAccountID     string `json:"ad_account_id" mapstructure:"ad_account_id"`
	BaseURL         string `json:"base_url" mapstructure:"base_url"`
	APIVersion      string `json:"api_version" mapstructure:"api_version"`
	MaxInsightPages int    `json:"max_insight_pages" mapstructure:"max_insight_pages"`
}

// ZapierConfig holds Zapier credentials
type ZapierConfig struct {
	APIKey     string `json:"api_key" mapstructure:"api_key"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
	APIVersion string `json:"api_version" mapstructure:"api_version"`
}

// SheetsConfig points at the OAuth client and token files produced by the
// external bootstrap flow.
type SheetsConfig struct {
	CredentialsPath string `json:"credentials_path" mapstructure:"credentials_path"`
	TokenPath       string `json:"token_path" mapstructure:"token_path"`
	// Endpoint overrides the Sheets API root URL.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// ServerConfig holds transport settings
type ServerConfig struct {
	Transport      string   `json:"transport" mapstructure:"transport"` // stdio, http, ws
	Addr           string   `json:"addr" mapstructure:"addr"`
	Path           string   `json:"path" mapstructure:"path"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// RPCConfig holds websocket JSON-RPC settings
type RPCConfig struct {
	SharedSecret      string `json:"shared_secret" mapstructure:"shared_secret"`
	RequestsPerMinute int    `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxConcurrent     int    `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		GHL: GHLConfig{
			BaseURL:    "https://services.leadconnectorhq.com",
			APIVersion: "2021-07-28",
		},
		Meta: MetaConfig{
			BaseURL:         "https://graph.facebook.com",
			APIVersion:      "v18.0",
			MaxInsightPages: 10,
		},
		Zapier: ZapierConfig{
			BaseURL:    "https://api.zapier.com",
			APIVersion: "v1",
		},
		Sheets: SheetsConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
		},
		Server: ServerConfig{
			Transport:      TransportStdio,
			Addr:           "127.0.0.1:8700",
			Path:           "/mcp",
			AllowedOrigins: []string{"*"},
		},
		RPC: RPCConfig{
			RequestsPerMinute: 60,
			MaxConcurrent:     10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		ToolTimeout: 30 * time.Second,
		HTTPTimeout: 20 * time.Second,
	}
}

// Gateways lists the gateway names in a stable order.
func Gateways() []string {
	return []string{GatewayGHL, GatewayMeta, GatewayZapier, GatewaySheets}
}

// String returns the configuration as JSON with credentials masked.
func (c *Config) String() string {
	masked := *c
	masked.GHL.APIKey = mask(c.GHL.APIKey)
	masked.Meta.AccessToken = mask(c.Meta.AccessToken)
	masked.Zapier.APIKey = mask(c.Zapier.APIKey)
	masked.RPC.SharedSecret = mask(c.RPC.SharedSecret)
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "********"
}

// ConfigError reports a missing or unusable startup setting. It is fatal.
type ConfigError struct {
	// Variable is the environment variable (or setting) at fault.
	Variable string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s", e.Variable, e.Reason)
	}
	return fmt.Sprintf("%s environment variable is required", e.Variable)
}

// Kind classifies the error as a configuration failure.
func (e *ConfigError) Kind() toolerr.Kind {
	return toolerr.KindConfig
}

// Validate checks that every credential the named gateway needs is present.
// It is run once, before any transport accepts calls.
func (c *Config) Validate(gateway string) error {
	switch gateway {
	case GatewayGHL:
		if c.GHL.APIKey == "" {
			return &ConfigError{Variable: EnvGHLAPIKey}
		}
		if c.GHL.LocationID == "" {
			return &ConfigError{Variable: EnvGHLLocationID}
		}
	case GatewayMeta:
		if c.Meta.AccessToken == "" {
			return &ConfigError{Variable: EnvMetaAccessToken}
		}
		if c.Meta.AdAccountID == "" {
			return &ConfigError{Variable: EnvMetaAdAccountID}
		}
		if c.Meta.MaxInsightPages < 1 {
			return &ConfigError{Variable: "meta.max_insight_pages", Reason: "must be at least 1"}
		}
	case GatewayZapier:
		if c.Zapier.APIKey == "" {
			return &ConfigError{Variable: EnvZapierAPIKey}
		}
	case GatewaySheets:
		if c.Sheets.CredentialsPath == "" {
			return &ConfigError{Variable: EnvGoogleCredentialsPath}
		}
		if c.Sheets.TokenPath == "" {
			return &ConfigError{Variable: EnvGoogleTokenPath}
		}
	default:
		return &ConfigError{Variable: "gateway", Reason: fmt.Sprintf("%q is not one of %v", gateway, Gateways())}
	}

	return nil
}

// ValidateTransport checks transport settings for serving over transport.
func (c *Config) ValidateTransport(transport string) error {
	switch transport {
	case TransportStdio, TransportHTTP:
		return nil
	case TransportWS:
		if c.RPC.SharedSecret == "" {
			return &ConfigError{Variable: EnvRPCSharedSecret}
		}
		return nil
	default:
		return &ConfigError{Variable: "server.transport", Reason: fmt.Sprintf("%q must be stdio, http or ws", transport)}
	}
}
