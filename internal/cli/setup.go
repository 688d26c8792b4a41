package cli

import (
	"context"
	"fmt"

	"github.com/harun/apigate/internal/config"
	"github.com/harun/apigate/internal/logger"
	"github.com/harun/apigate/internal/observability"
	"github.com/harun/apigate/internal/tracing"
	"github.com/harun/apigate/pkg/gateways"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// runtime is everything a command needs to dispatch calls for one gateway.
type runtime struct {
	cfg      *config.Config
	gateway  string
	executor *toolexecutor.Executor
	logger   *logger.Logger
}

func (r *runtime) Close() {
	_ = tracing.ShutdownOpenTelemetry(context.Background())
	if r.cfg != nil && r.cfg.AuditLog != "" {
		_ = observability.CloseAuditLog()
	}
	if r.logger != nil {
		_ = r.logger.Close()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// validateSettings rejects unusable non-credential settings before any
// transport starts.
func validateSettings(cfg *config.Config) error {
	errs := config.NewValidator().ValidateConfig(cfg)
	if len(errs) == 0 {
		return nil
	}
	return &config.ConfigError{Variable: "configuration", Reason: "is invalid: " + errs[0].Error()}
}

func setupLogging(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Secrets: []string{
			cfg.GHL.APIKey,
			cfg.Meta.AccessToken,
			cfg.Zapier.APIKey,
			cfg.RPC.SharedSecret,
		},
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
}

// newRuntime loads configuration, validates the gateway's credentials and
// builds its executor. Any *config.ConfigError is returned untouched so the
// caller can report it and exit.
func newRuntime(ctx context.Context, gateway string) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := validateSettings(cfg); err != nil {
		return nil, err
	}

	lg, err := setupLogging(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt := &runtime{cfg: cfg, gateway: gateway, logger: lg}

	registry, err := gateways.Build(ctx, gateway, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if err := tracing.InitOpenTelemetry(gateways.ServerInfo[gateway], version); err != nil {
		log.Warn().Err(err).Msg("OpenTelemetry disabled")
	}

	if cfg.AuditLog != "" {
		if err := observability.OpenAuditLog(cfg.AuditLog); err != nil {
			rt.Close()
			return nil, &config.ConfigError{Variable: "audit_log", Reason: fmt.Sprintf("cannot be opened: %v", err)}
		}
	}

	rt.executor = toolexecutor.New(registry,
		toolexecutor.WithTimeout(cfg.ToolTimeout),
		toolexecutor.WithGateway(gateway),
	)

	return rt, nil
}
