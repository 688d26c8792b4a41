package observability

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit categories.
const (
	AuditTool = "tool"
	AuditAuth = "auth"
)

// ToolAudit is one state-changing call against an external account
// (campaign creation, zap toggles, sheet writes).
type ToolAudit struct {
	Gateway   string
	Tool      string
	// Kind is the failure kind, empty when the call succeeded.
	Kind      string
	Actor     string
	RequestID string
	Duration  time.Duration
}

// AuthAudit is one rejected transport authentication.
type AuthAudit struct {
	Transport string
	Client    string
	Address   string
	Reason    string
	Attempts  int
}

// AuditLog writes one JSON line per audited event. Writes are serialized.
type AuditLog struct {
	mu     sync.Mutex
	out    zerolog.Logger
	closer io.Closer
}

var (
	auditMu  sync.Mutex
	auditLog = newAuditLog(os.Stderr, nil)
)

func newAuditLog(w io.Writer, closer io.Closer) *AuditLog {
	return &AuditLog{
		out:    zerolog.New(w).With().Timestamp().Logger(),
		closer: closer,
	}
}

// OpenAuditLog appends audit lines to path from now on. Without it the
// audit stream goes to stderr, since stdout carries the MCP stdio session.
func OpenAuditLog(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	auditMu.Lock()
	prev := auditLog
	auditLog = newAuditLog(file, file)
	auditMu.Unlock()

	return prev.close()
}

// CloseAuditLog closes the audit file, if any, and falls back to stderr.
func CloseAuditLog() error {
	auditMu.Lock()
	prev := auditLog
	auditLog = newAuditLog(os.Stderr, nil)
	auditMu.Unlock()

	return prev.close()
}

func currentAuditLog() *AuditLog {
	auditMu.Lock()
	defer auditMu.Unlock()
	return auditLog
}

func (a *AuditLog) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// RecordTool audits a mutating tool call.
func RecordTool(ctx context.Context, ev ToolAudit) {
	outcome := "success"
	if ev.Kind != "" {
		outcome = "failed"
	}

	traceID := annotateSpan(ctx, AuditTool+"."+ev.Tool,
		attribute.String("apigate.gateway", ev.Gateway),
		attribute.String("apigate.outcome", outcome),
	)

	a := currentAuditLog()
	a.mu.Lock()
	defer a.mu.Unlock()

	a.out.Log().
		Str("category", AuditTool).
		Str("gateway", ev.Gateway).
		Str("tool", ev.Tool).
		Str("outcome", outcome).
		Str("kind", ev.Kind).
		Str("actor", ev.Actor).
		Str("request_id", ev.RequestID).
		Int64("duration_ms", ev.Duration.Milliseconds()).
		Str("trace_id", traceID).
		Msg("")
}

// RecordAuth audits a rejected authentication attempt.
func RecordAuth(ctx context.Context, ev AuthAudit) {
	traceID := annotateSpan(ctx, AuditAuth+"."+ev.Transport,
		attribute.String("apigate.client", ev.Client),
		attribute.Int("apigate.attempts", ev.Attempts),
	)

	a := currentAuditLog()
	a.mu.Lock()
	defer a.mu.Unlock()

	a.out.Log().
		Str("category", AuditAuth).
		Str("transport", ev.Transport).
		Str("client", ev.Client).
		Str("address", ev.Address).
		Str("reason", ev.Reason).
		Int("attempts", ev.Attempts).
		Str("trace_id", traceID).
		Msg("")
}

// annotateSpan adds the audit event to the active span and returns its
// trace ID, empty when no span is recording.
func annotateSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) string {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return ""
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
	return sc.TraceID().String()
}
