// Package mcpserver exposes a tool executor over the Model Context Protocol.
//
// Every registry entry becomes an MCP tool whose handler runs the executor
// and answers with a single text content block holding the envelope JSON.
// Calls naming a tool outside the registry are intercepted before the SDK
// rejects them, so they too receive an envelope instead of a protocol error.
// tools/list is answered in registry declaration order; the SDK would sort
// by name.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harun/apigate/internal/observability"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPath is where the streamable HTTP endpoint is mounted.
	DefaultPath = "/mcp"

	shutdownTimeout = 5 * time.Second
)

// Options configures the HTTP surface. The stdio transport ignores it.
type Options struct {
	Path           string
	AllowedOrigins []string
}

// Server wraps an MCP server bound to one executor.
type Server struct {
	name     string
	version  string
	executor *toolexecutor.Executor
	server   *mcp.Server
	opts     Options
	// tools in registry declaration order
	tools []*mcp.Tool

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// New registers every tool known to the executor on a fresh MCP server.
func New(name, version string, executor *toolexecutor.Executor, opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		name:     name,
		version:  version,
		executor: executor,
		opts:     opts,
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{
		HasTools: true,
	})
	s.server.AddReceivingMiddleware(s.toolsMiddleware)

	for _, desc := range executor.Registry().List() {
		tool := &mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		}
		s.tools = append(s.tools, tool)
		s.server.AddTool(tool, s.toolHandler(desc.Name))
	}

	log.Info().
		Str("server", name).
		Str("version", version).
		Int("tools", executor.Registry().Len()).
		Msg("MCP server initialized")

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := s.executor.ExecuteJSON(ctx, name, req.Params.Arguments)
		return toResult(env), nil
	}
}

// toolsMiddleware lists tools in declaration order and answers calls for
// unregistered tools with a failure envelope rather than a JSON-RPC error.
func (s *Server) toolsMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		switch method {
		case "tools/list":
			return &mcp.ListToolsResult{Tools: s.tools}, nil
		case "tools/call":
		default:
			return next(ctx, method, req)
		}
		call, ok := req.(*mcp.CallToolRequest)
		if !ok || call.Params == nil {
			return next(ctx, method, req)
		}
		if _, err := s.executor.Registry().Resolve(call.Params.Name); err == nil {
			return next(ctx, method, req)
		}
		env := s.executor.ExecuteJSON(ctx, call.Params.Name, call.Params.Arguments)
		return toResult(env), nil
	}
}

func toResult(env toolexecutor.Envelope) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: env.Text()}},
		IsError: env.IsError(),
	}
}

// ServeStdio serves a single session over stdin/stdout until the client
// disconnects or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	log.Info().Str("server", s.name).Msg("MCP server running on stdio")

	err := s.server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// HTTPHandler serves the streamable MCP endpoint behind CORS, together with
// health and metrics endpoints.
func (s *Server) HTTPHandler() http.Handler {
	stream := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	})

	mux := http.NewServeMux()
	mux.Handle(s.opts.Path, corsHandler.Handler(stream))
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","server":%q,"tools":%d}`, s.name, s.executor.Registry().Len())
	})

	return mux
}

// ListenAndServe runs the HTTP transport until ctx is cancelled or the
// listener fails. Cancellation triggers a graceful shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServerMu.Lock()
	if s.httpServer != nil {
		running := s.httpServer.Addr
		s.httpServerMu.Unlock()
		return fmt.Errorf("mcpserver: already listening on %s", running)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = srv
	s.httpServerMu.Unlock()

	defer func() {
		s.httpServerMu.Lock()
		if s.httpServer == srv {
			s.httpServer = nil
		}
		s.httpServerMu.Unlock()
	}()

	log.Info().
		Str("server", s.name).
		Str("addr", addr).
		Str("path", s.opts.Path).
		Msg("MCP server listening on HTTP")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("MCP HTTP shutdown incomplete")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
