package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

var adAccountPattern = regexp.MustCompile(`^(act_)?\d+$`)

// ValidateBaseURL validates an upstream base URL override
func (v *Validator) ValidateBaseURL(raw, setting string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", setting)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid %s: %q", setting, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s scheme %q (must be http or https)", setting, parsed.Scheme)
	}
	return nil
}

// ValidateAdAccountID validates a Meta ad account id ("act_123" or "123")
func (v *Validator) ValidateAdAccountID(id string) error {
	if id == "" {
		return nil // checked per gateway at startup
	}
	if !adAccountPattern.MatchString(id) {
		return fmt.Errorf("invalid Meta ad account id: %s (expected act_<digits>)", id)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateAddr validates a host:port listen address
func (v *Validator) ValidateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation of non-credential settings
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	for setting, raw := range map[string]string{
		"ghl.base_url":    cfg.GHL.BaseURL,
		"meta.base_url":   cfg.Meta.BaseURL,
		"zapier.base_url": cfg.Zapier.BaseURL,
	} {
		if err := v.ValidateBaseURL(raw, setting); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Sheets.Endpoint != "" {
		if err := v.ValidateBaseURL(cfg.Sheets.Endpoint, "sheets.endpoint"); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateAdAccountID(cfg.Meta.AdAccountID); err != nil {
		errors = append(errors, err)
	}
	if cfg.Meta.MaxInsightPages < 1 {
		errors = append(errors, fmt.Errorf("meta.max_insight_pages must be >= 1"))
	}

	if cfg.Server.Transport != TransportStdio {
		if err := v.ValidateAddr(cfg.Server.Addr); err != nil {
			errors = append(errors, err)
		}
	}
	if !strings.HasPrefix(cfg.Server.Path, "/") {
		errors = append(errors, fmt.Errorf("server.path must start with /"))
	}

	if cfg.RPC.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Errorf("rpc.requests_per_minute must be >= 1"))
	}
	if cfg.RPC.MaxConcurrent < 1 {
		errors = append(errors, fmt.Errorf("rpc.max_concurrent must be >= 1"))
	}

	if cfg.ToolTimeout <= 0 {
		errors = append(errors, fmt.Errorf("tool_timeout must be positive"))
	}
	if cfg.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Errorf("http_timeout must be positive"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
