package domain

import (
	"context"
	"encoding/json"
)

// Tier identifies which resolution stratum a tool belongs to.
type Tier string

const (
	TierCore Tier = "core"
	TierPack Tier = "pack"
)

// ToolSchema describes a tool for discovery and for the MCP surface.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolInfo is a discovery entry for one registered tool. Available reflects
// the owning pack's activation state at listing time; core tools are always
// available.
type ToolInfo struct {
	Name      string `json:"name"`
	Tier      Tier   `json:"tier"`
	Pack      string `json:"pack,omitempty"`
	Available bool   `json:"available"`
}

// ToolHandler is the single capability every tool implements. Params carry
// loosely-typed JSON object arguments; callerID is 0 for anonymous calls.
type ToolHandler interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Invoke(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error)
}

// HandlerFunc adapts a plain function to ToolHandler for packs that do not
// need schemas or descriptions.
type HandlerFunc struct {
	ToolName string
	Fn       func(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error)
}

func (h HandlerFunc) Name() string        { return h.ToolName }
func (h HandlerFunc) Description() string { return "" }
func (h HandlerFunc) Schema() ToolSchema  { return ToolSchema{Name: h.ToolName} }

func (h HandlerFunc) Invoke(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error) {
	return h.Fn(ctx, params, callerID)
}
