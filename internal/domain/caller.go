package domain

import "context"

// Role is a caller authorization role as reported by the content platform.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
	RoleAuthor        Role = "author"
	RolePremium       Role = "premium"
	RoleSubscriber    Role = "subscriber"
)

// HasRole reports whether want appears in roles.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// CallerDirectory resolves caller identity and attributes. Caller id 0 means
// anonymous. Implementations query the content platform's user subsystem;
// results are not cached across calls.
type CallerDirectory interface {
	// CurrentCallerID returns the ambient caller for this request context,
	// or 0 when there is none.
	CurrentCallerID(ctx context.Context) int64
	// RolesOf returns the roles of the given caller. Unknown callers get nil.
	RolesOf(ctx context.Context, callerID int64) []Role
	// RateOverrideOf returns a per-caller request limit override.
	// ok is false when no override is set.
	RateOverrideOf(ctx context.Context, callerID int64) (limit int, ok bool)
}
