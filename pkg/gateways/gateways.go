// Package gateways builds the tool registry for one named gateway from
// configuration.
package gateways

import (
	"context"
	"fmt"

	"github.com/harun/apigate/internal/config"
	"github.com/harun/apigate/pkg/gateways/ghl"
	"github.com/harun/apigate/pkg/gateways/metaads"
	"github.com/harun/apigate/pkg/gateways/sheets"
	"github.com/harun/apigate/pkg/gateways/zapier"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// ServerInfo names the MCP server advertised by each gateway.
var ServerInfo = map[string]string{
	config.GatewayGHL:    "gohighlevel-mcp",
	config.GatewayMeta:   "meta-ads-mcp",
	config.GatewayZapier: "zapier-mcp",
	config.GatewaySheets: "google-sheets-mcp",
}

// Names lists the buildable gateways.
func Names() []string {
	return config.Gateways()
}

// Build validates the gateway's credentials and returns its immutable
// registry. A missing credential is a *config.ConfigError.
func Build(ctx context.Context, name string, cfg *config.Config) (*toolexecutor.Registry, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}

	tools, err := tools(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := toolexecutor.NewRegistry(tools...)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s registry: %w", name, err)
	}

	log.Info().
		Str("gateway", name).
		Int("tools", registry.Len()).
		Msg("Gateway registry built")

	return registry, nil
}

func tools(ctx context.Context, name string, cfg *config.Config) ([]toolexecutor.ToolDefinition, error) {
	switch name {
	case config.GatewayGHL:
		gw, err := ghl.New(ghl.Config{
			APIKey:     cfg.GHL.APIKey,
			LocationID: cfg.GHL.LocationID,
			BaseURL:    cfg.GHL.BaseURL,
			APIVersion: cfg.GHL.APIVersion,
			Timeout:    cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return gw.Tools(), nil

	case config.GatewayMeta:
		gw, err := metaads.New(metaads.Config{
			AccessToken:     cfg.Meta.AccessToken,
			AdAccountID:     cfg.Meta.AdAccountID,
			BaseURL:         cfg.Meta.BaseURL,
			APIVersion:      cfg.Meta.APIVersion,
			MaxInsightPages: cfg.Meta.MaxInsightPages,
			Timeout:         cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return gw.Tools(), nil

	case config.GatewayZapier:
		gw, err := zapier.New(zapier.Config{
			APIKey:     cfg.Zapier.APIKey,
			BaseURL:    cfg.Zapier.BaseURL,
			APIVersion: cfg.Zapier.APIVersion,
			Timeout:    cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return gw.Tools(), nil

	case config.GatewaySheets:
		gw, err := sheets.New(ctx, sheets.Config{
			CredentialsPath: cfg.Sheets.CredentialsPath,
			TokenPath:       cfg.Sheets.TokenPath,
			Endpoint:        cfg.Sheets.Endpoint,
			Timeout:         cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return gw.Tools(), nil
	}

	return nil, &config.ConfigError{Variable: "gateway", Reason: fmt.Sprintf("%q is not one of %v", name, Names())}
}
