package domain

import "context"

// PackConfig is the access policy of one pack. An empty AllowedRoles slice
// means no role restriction is configured.
type PackConfig struct {
	AllowedRoles []Role `json:"allowed_roles,omitempty" yaml:"allowed_roles,omitempty"`
}

// PackStatus is a discovery entry for one pack.
type PackStatus struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	ToolCount int    `json:"tool_count"`
}

// PackStore exposes the persisted pack configuration. State may change
// between calls; callers must not cache beyond a single request.
type PackStore interface {
	// IsActive reports whether the named pack is enabled.
	IsActive(ctx context.Context, pack string) bool
	// ConfigFor returns the pack's access policy, or ErrPackNotFound.
	ConfigFor(ctx context.Context, pack string) (*PackConfig, error)
}

// PackPermissionFunc is the general extensibility predicate consulted when a
// pack has no role allow-list (and, with the allow-list's verdict as the
// default, when it does). Hosts install it to layer custom access rules.
type PackPermissionFunc func(allowed bool, pack string, callerID int64) bool
