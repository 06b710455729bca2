// Package packsdk provides types and helpers for toolgate pack developers.
//
// NOTE: This package re-exports internal/domain via type aliases. It is usable
// by packs that live inside the toolgate module (in-tree packs). Out-of-tree
// pack authors cannot import internal/ packages directly.
package packsdk

import (
	"context"
	"encoding/json"

	"toolgate/internal/domain"
)

// Re-exported domain types for pack developers.
type (
	ToolHandler   = domain.ToolHandler
	ToolSchema    = domain.ToolSchema
	Envelope      = domain.Envelope
	EnvelopeError = domain.EnvelopeError
	ErrorKind     = domain.ErrorKind
	Role          = domain.Role
)

// Re-exported error kinds.
const (
	ErrKindAuth        = domain.ErrKindAuth
	ErrKindRateLimit   = domain.ErrKindRateLimit
	ErrKindValidation  = domain.ErrKindValidation
	ErrKindPermission  = domain.ErrKindPermission
	ErrKindNotFound    = domain.ErrKindNotFound
	ErrKindInternal    = domain.ErrKindInternal
	ErrKindUnknownTool = domain.ErrKindUnknownTool
)

// Re-exported role constants.
const (
	RoleAdministrator = domain.RoleAdministrator
	RoleEditor        = domain.RoleEditor
	RoleAuthor        = domain.RoleAuthor
	RolePremium       = domain.RolePremium
	RoleSubscriber    = domain.RoleSubscriber
)

// Envelope builders.
var (
	OK         = domain.OK
	Fail       = domain.Fail
	FailDetail = domain.FailDetail
)

// Tool builds a ToolHandler from a name, description, JSON Schema and
// invocation function. The schema may be empty; the router then skips
// parameter validation for the tool.
func Tool(name, description string, schema json.RawMessage,
	fn func(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error)) ToolHandler {
	return &sdkTool{name: name, description: description, schema: schema, fn: fn}
}

type sdkTool struct {
	name        string
	description string
	schema      json.RawMessage
	fn          func(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error)
}

func (t *sdkTool) Name() string        { return t.name }
func (t *sdkTool) Description() string { return t.description }

func (t *sdkTool) Schema() ToolSchema {
	return ToolSchema{Name: t.name, Description: t.description, Parameters: t.schema}
}

func (t *sdkTool) Invoke(ctx context.Context, params map[string]any, callerID int64) (*Envelope, error) {
	return t.fn(ctx, params, callerID)
}
