// Package tools holds the built-in core tool handlers. Each handler owns its
// name, JSON Schema and invocation logic; the router knows them only through
// domain.ToolHandler.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"toolgate/internal/domain"
)

// HealthTool is the always-public health check. It is the only tool
// anonymous callers may invoke.
type HealthTool struct {
	store   domain.ContentStore
	version string
}

// NewHealthTool creates the health tool. store may be nil when the gateway
// runs without a backend (the check then reports gateway liveness only).
func NewHealthTool(store domain.ContentStore, version string) *HealthTool {
	return &HealthTool{store: store, version: version}
}

func (t *HealthTool) Name() string { return "health_check" }

func (t *HealthTool) Description() string {
	return "Report gateway liveness and content backend reachability."
}

func (t *HealthTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(`{"type":"object","additionalProperties":false}`),
	}
}

func (t *HealthTool) Invoke(ctx context.Context, _ map[string]any, _ int64) (*domain.Envelope, error) {
	payload := map[string]any{
		"status":  "ok",
		"version": t.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if t.store != nil {
		if err := t.store.Health(ctx); err != nil {
			payload["status"] = "degraded"
			payload["backend"] = "unreachable"
		} else {
			payload["backend"] = "ok"
		}
	}
	return domain.OK(payload), nil
}
