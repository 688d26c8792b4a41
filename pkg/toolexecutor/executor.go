package toolexecutor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/harun/apigate/internal/observability"
	"github.com/harun/apigate/internal/tracing"
	"github.com/harun/apigate/pkg/toolerr"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds one tool call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithGateway labels spans and logs with the gateway name.
func WithGateway(name string) Option {
	return func(e *Executor) { e.gateway = name }
}

// Executor dispatches tool calls against a Registry. It holds no mutable
// state and may serve concurrent calls.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	gateway  string
}

// New creates an Executor over registry.
func New(registry *Registry, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	log.Info().
		Str("gateway", e.gateway).
		Int("tools", registry.Len()).
		Dur("timeout", e.timeout).
		Msg("Tool executor initialized")

	return e
}

// Gateway returns the gateway name the executor was labelled with.
func (e *Executor) Gateway() string {
	return e.gateway
}

// Registry returns the registry the executor dispatches against.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// ExecuteJSON decodes raw call arguments and executes the tool. Empty or
// null arguments are treated as an empty object.
func (e *Executor) ExecuteJSON(ctx context.Context, name string, raw json.RawMessage) Envelope {
	args := map[string]interface{}{}
	if trimmed := string(raw); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return e.finish(ctx, name, false, time.Now(),
				FailureEnvelope(toolerr.Validationf("Invalid arguments: expected a JSON object")))
		}
	}
	return e.Execute(ctx, name, args)
}

// Execute runs one tool call and always returns exactly one envelope.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) Envelope {
	startTime := time.Now()

	ctx = tracing.NewCallContext(ctx, name)
	ctx, span := tracing.StartSpan(ctx, "tool.call",
		attribute.String("apigate.tool", name),
		attribute.String("apigate.gateway", e.gateway),
	)

	def, err := e.registry.Resolve(name)
	if err != nil {
		env := FailureEnvelope(toolerr.Validationf("Unknown tool: %s", name))
		tracing.EndSpan(span, string(env.Kind), env.Err)
		return e.finish(ctx, name, false, startTime, env)
	}

	env := e.dispatch(ctx, def, args)
	tracing.EndSpan(span, string(env.Kind), env.Err)

	if def.Mutating {
		audit := observability.ToolAudit{
			Gateway:   e.gateway,
			Tool:      name,
			Actor:     actorFromContext(ctx),
			RequestID: tracing.GetRequestID(ctx),
			Duration:  time.Since(startTime),
		}
		if env.IsError() {
			audit.Kind = string(env.Kind)
		}
		observability.RecordTool(tracing.Detach(ctx), audit)
	}

	return e.finish(ctx, name, true, startTime, env)
}

func (e *Executor) finish(ctx context.Context, name string, known bool, startTime time.Time, env Envelope) Envelope {
	duration := time.Since(startTime)

	label := name
	if !known {
		label = "unknown"
	}
	observability.RecordToolCall(label, string(env.Kind), duration)

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	if env.IsError() {
		logger.Warn().
			Str("kind", string(env.Kind)).
			Dur("duration", duration).
			Str("error", env.Message()).
			Msg("Tool call failed")
	} else {
		logger.Debug().
			Dur("duration", duration).
			Msg("Tool call completed")
	}

	return env
}

// dispatch validates, invokes and normalizes one resolved call.
func (e *Executor) dispatch(ctx context.Context, def *ToolDefinition, args map[string]interface{}) Envelope {
	prepared, err := e.registry.prepare(def.Name, args)
	if err != nil {
		return FailureEnvelope(err)
	}

	payload, err := e.invoke(ctx, def, prepared)
	return normalize(payload, err)
}

type handlerOutcome struct {
	payload interface{}
	err     error
}

// invoke runs the handler under the call deadline, converting panics into
// internal failures.
func (e *Executor) invoke(ctx context.Context, def *ToolDefinition, args Args) (interface{}, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan handlerOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("tool", def.Name).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("Tool handler panicked")
				done <- handlerOutcome{err: toolerr.Internalf("Internal error in %s: %v", def.Name, r)}
			}
		}()

		payload, err := def.Handler.Handle(timeoutCtx, args)
		done <- handlerOutcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		return out.payload, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return nil, toolerr.Wrap(toolerr.KindCancelled, "Tool call cancelled", ctx.Err())
		}
		return nil, toolerr.Wrap(toolerr.KindNetwork,
			fmt.Sprintf("Tool execution timeout after %v", e.timeout), timeoutCtx.Err())
	}
}

// normalize is the only place a handler outcome becomes an envelope.
func normalize(payload interface{}, err error) Envelope {
	if err != nil {
		return FailureEnvelope(err)
	}
	return SuccessEnvelope(payload)
}

func actorFromContext(ctx context.Context) string {
	if id := tracing.GetClientID(ctx); id != "" {
		return id
	}
	return "local"
}
