package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditRequestStart AuditEventType = "tool.request.start"
	AuditRequestEnd   AuditEventType = "tool.request.end"
	AuditAuthDenied   AuditEventType = "tool.auth_denied"
	AuditRateLimited  AuditEventType = "tool.rate_limited"
	AuditDispatchFail AuditEventType = "tool.dispatch_error"
)

// AuditEvent represents a single auditable routing action.
type AuditEvent struct {
	Timestamp     time.Time      `json:"timestamp"`
	Type          AuditEventType `json:"type"`
	CorrelationID string         `json:"correlation_id"`
	Tool          string         `json:"tool,omitempty"`
	CallerID      int64          `json:"caller_id,omitempty"`
	Success       *bool          `json:"success,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// AuditSink receives audit events. Emit is fire-and-forget: the router never
// consults its outcome and must not fail a request over a sink error.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
	Close() error
}
