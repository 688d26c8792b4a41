package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
)

// Method names served by every gateway.
const (
	MethodToolsList   = "tools.list"
	MethodToolsCall   = "tools.call"
	MethodClientsList = "clients.list"
)

func (s *Server) registerBuiltinMethods() error {
	methods := []struct {
		name    string
		handler RequestHandler
	}{
		{MethodToolsList, s.handleToolsList},
		{MethodToolsCall, s.handleToolsCall},
		{MethodClientsList, s.handleClientsList},
	}
	for _, m := range methods {
		if err := s.router.RegisterMethod(m.name, m.handler); err != nil {
			return fmt.Errorf("register %s: %w", m.name, err)
		}
	}
	return nil
}

func (s *Server) handleToolsList(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return ToolListResult{Tools: s.executor.Registry().List()}, nil
}

// handleToolsCall runs one call through the executor. Tool failures are
// results with isError set, never RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params ToolCallParams
	if len(raw) == 0 {
		return nil, &RPCError{Code: InvalidParams, Message: "Invalid params: name is required"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if params.Name == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "Invalid params: name is required"}
	}

	env := s.executor.ExecuteJSON(ctx, params.Name, params.Arguments)

	return ToolCallResult{
		Content: []TextContent{{Type: "text", Text: env.Text()}},
		IsError: env.IsError(),
	}, nil
}

func (s *Server) handleClientsList(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"clients": s.clients.Snapshot(),
	}, nil
}
