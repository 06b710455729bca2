package router

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"toolgate/internal/domain"
)

// Default rate limit settings.
const (
	DefaultRateLimit  = 60
	DefaultRateWindow = 60 * time.Second

	adminMultiplier   = 10
	premiumMultiplier = 3
)

// RateResult is the outcome of a limit check.
type RateResult struct {
	Allowed    bool
	RetryAfter int // seconds until the window expires; set when rejected
	Limit      int // effective limit for this caller; set when rejected
}

// Limiter bounds per-caller request counts within a fixed time window.
// Counters live in a CounterStore keyed by caller id; the window always
// expires on a fixed schedule from a caller's first counted request, and
// increments never extend it.
//
// Check and Increment are deliberately separate operations with no lock
// spanning the dispatch between them. Concurrent requests from one caller
// can both pass Check before either Increment lands, briefly overrunning
// the limit; the limiter is advisory, not a hard quota.
type Limiter struct {
	store  domain.CounterStore
	dir    domain.CallerDirectory
	base   int
	window time.Duration
	logger *slog.Logger
}

// NewLimiter creates a limiter over the given counter store. base and window
// fall back to the defaults when zero.
func NewLimiter(store domain.CounterStore, dir domain.CallerDirectory, base int, window time.Duration, logger *slog.Logger) *Limiter {
	if base <= 0 {
		base = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Limiter{store: store, dir: dir, base: base, window: window, logger: logger}
}

// Window returns the fixed window duration.
func (l *Limiter) Window() time.Duration { return l.window }

func counterKey(callerID int64) string {
	return fmt.Sprintf("ratelimit:%d", callerID)
}

// LimitFor returns the effective request limit for a caller: a per-caller
// override wins, else the role multiplier (administrator x10, premium x3),
// else the base limit.
func (l *Limiter) LimitFor(ctx context.Context, callerID int64) int {
	if callerID > 0 && l.dir != nil {
		if override, ok := l.dir.RateOverrideOf(ctx, callerID); ok && override > 0 {
			return override
		}
		roles := l.dir.RolesOf(ctx, callerID)
		if domain.HasRole(roles, domain.RoleAdministrator) {
			return l.base * adminMultiplier
		}
		if domain.HasRole(roles, domain.RolePremium) {
			return l.base * premiumMultiplier
		}
	}
	return l.base
}

// Check reports whether the caller may proceed. Anonymous callers (id <= 0)
// always pass: they are confined to the public tool, which bypasses rate
// accounting entirely.
func (l *Limiter) Check(ctx context.Context, callerID int64) RateResult {
	if callerID <= 0 {
		return RateResult{Allowed: true}
	}

	count, err := l.store.Get(ctx, counterKey(callerID))
	if err != nil {
		// A broken store must not take the router down with it.
		l.logger.Warn("rate counter read failed, allowing call", "caller_id", callerID, "error", err)
		return RateResult{Allowed: true}
	}

	limit := l.LimitFor(ctx, callerID)
	if count < limit {
		return RateResult{Allowed: true}
	}

	retryAfter := l.window
	if ttl, err := l.store.RemainingTTL(ctx, counterKey(callerID)); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	return RateResult{
		Allowed:    false,
		RetryAfter: int(math.Ceil(retryAfter.Seconds())),
		Limit:      limit,
	}
}

// Increment counts one request against the caller. The first request of a
// window creates the counter with a full fresh TTL; later increments rewrite
// the count under the window's remaining TTL, never extending it.
func (l *Limiter) Increment(ctx context.Context, callerID int64) {
	if callerID <= 0 {
		return
	}
	key := counterKey(callerID)

	count, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("rate counter read failed, skipping increment", "caller_id", callerID, "error", err)
		return
	}

	ttl := l.window
	if count > 0 {
		if remaining, err := l.store.RemainingTTL(ctx, key); err == nil && remaining > 0 {
			ttl = remaining
		}
	}

	if err := l.store.Set(ctx, key, count+1, ttl); err != nil {
		l.logger.Warn("rate counter write failed", "caller_id", callerID, "error", err)
	}
}
