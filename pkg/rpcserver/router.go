package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// RequestHandler serves one RPC method. Returning an *RPCError selects the
// error code; any other error becomes InternalError.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// RPCRouter maps method names to handlers and replays responses for
// requests that repeat an idempotency key.
type RPCRouter struct {
	mu      sync.RWMutex
	methods map[string]RequestHandler
	replay  *replayCache
}

// NewRPCRouter returns a router with an empty method table.
func NewRPCRouter() *RPCRouter {
	return &RPCRouter{
		methods: make(map[string]RequestHandler),
		replay:  newReplayCache(DefaultIdempotencyTTL),
	}
}

// RegisterMethod adds a method. Names are unique.
func (r *RPCRouter) RegisterMethod(name string, handler RequestHandler) error {
	if name == "" {
		return errors.New("method name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("method %s: handler cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.methods[name]; dup {
		return fmt.Errorf("method %s already registered", name)
	}
	r.methods[name] = handler
	return nil
}

// Methods returns the registered method names, sorted.
func (r *RPCRouter) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseRequest decodes one frame. A missing jsonrpc version defaults to 2.0.
func (r *RPCRouter) ParseRequest(data []byte) (*RPCRequest, error) {
	var req RPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &RPCError{Code: ParseError, Message: "Parse error", Data: err.Error()}
	}
	switch {
	case req.ID == "":
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid request: missing id field"}
	case req.Method == "":
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid request: missing method field"}
	}
	if req.JSONRPC == "" {
		req.JSONRPC = "2.0"
	}
	return &req, nil
}

// RouteRequest runs the request's handler. When the request carries an
// idempotency key already answered within the TTL, the stored response is
// returned under the new request ID and the handler does not run.
func (r *RPCRouter) RouteRequest(ctx context.Context, req *RPCRequest) *RPCResponse {
	if req == nil {
		return errorResponse("", InvalidRequest, "invalid request")
	}

	if resp, ok := r.replay.lookup(req.Method, req.IdempotencyKey); ok {
		resp.ID = req.ID
		return &resp
	}

	r.mu.RLock()
	handler, ok := r.methods[req.Method]
	r.mu.RUnlock()
	if !ok {
		return errorResponse(req.ID, MethodNotFound, "Method not found: "+req.Method)
	}

	resp := invoke(ctx, handler, req)
	r.replay.store(req.Method, req.IdempotencyKey, *resp)
	return resp
}

func invoke(ctx context.Context, handler RequestHandler, req *RPCRequest) *RPCResponse {
	result, err := handler(ctx, req.Params)
	if err == nil {
		return &RPCResponse{ID: req.ID, JSONRPC: "2.0", Result: result}
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}
	return errorResponse(req.ID, InternalError, err.Error())
}

func errorResponse(id string, code int, message string) *RPCResponse {
	return &RPCResponse{
		ID:      id,
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
	}
}
