package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/apigate/internal/config"
	"github.com/harun/apigate/pkg/gateways"
	"github.com/harun/apigate/pkg/mcpserver"
	"github.com/harun/apigate/pkg/rpcserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve <gateway>",
	Short: "Serve a gateway's tools",
	Long: `Serve one gateway (ghl, meta, zapier or sheets).

Credentials are checked before the transport starts; a missing one is
reported on stderr and the process exits with status 1.

Transports:
  stdio  MCP over stdin/stdout (default)
  http   MCP streamable HTTP, plus /healthz and /metrics
  ws     JSON-RPC over websocket (/ws) and HTTP POST (/rpc)`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: gateways.Names(),
	RunE:      runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport: stdio, http or ws (default from config)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for http and ws transports (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, args[0])
	if err != nil {
		return err
	}
	defer rt.Close()

	transport := serveTransport
	if transport == "" {
		transport = rt.cfg.Server.Transport
	}
	if err := rt.cfg.ValidateTransport(transport); err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = rt.cfg.Server.Addr
	}

	return serve(ctx, rt, transport, addr)
}

func serve(ctx context.Context, rt *runtime, transport, addr string) error {
	name := gateways.ServerInfo[rt.gateway]

	log.Info().
		Str("gateway", rt.gateway).
		Str("transport", transport).
		Msg("Starting gateway")

	switch transport {
	case config.TransportHTTP:
		srv := mcpserver.New(name, version, rt.executor, mcpserver.Options{
			Path:           rt.cfg.Server.Path,
			AllowedOrigins: rt.cfg.Server.AllowedOrigins,
		})
		return srv.ListenAndServe(ctx, addr)

	case config.TransportWS:
		srv, err := rpcserver.NewServer(rpcserver.Config{
			SharedSecret:      rt.cfg.RPC.SharedSecret,
			RequestsPerMinute: rt.cfg.RPC.RequestsPerMinute,
			MaxConcurrent:     rt.cfg.RPC.MaxConcurrent,
			Executor:          rt.executor,
			Logger:            log.Logger.With().Str("component", "rpcserver").Logger(),
		})
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, addr)

	default:
		srv := mcpserver.New(name, version, rt.executor, mcpserver.Options{})
		return srv.ServeStdio(ctx)
	}
}
