package domain

import "context"

type ctxKey string

const callerIDCtxKey ctxKey = "caller_id"

// ContextWithCallerID returns a new context carrying the given caller id.
// Transport adapters set this after authenticating a connection; the router
// falls back to it when no explicit caller id accompanies an invocation.
func ContextWithCallerID(ctx context.Context, callerID int64) context.Context {
	return context.WithValue(ctx, callerIDCtxKey, callerID)
}

// CallerIDFromContext extracts the caller id from the context.
// Returns 0 if not set.
func CallerIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(callerIDCtxKey).(int64); ok {
		return v
	}
	return 0
}
