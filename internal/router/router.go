package router

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"toolgate/internal/domain"
	"toolgate/internal/infra/tracer"
)

// PublicTool is the one tool anonymous callers may invoke.
const PublicTool = "health_check"

// Deps are the collaborators a Router needs. Registry, Limiter, Packs,
// Callers and Logger are required; Legacy, Audit and Permission are optional.
type Deps struct {
	Registry   *Registry
	Limiter    *Limiter
	Packs      domain.PackStore
	Callers    domain.CallerDirectory
	Legacy     domain.LegacyTranslator
	Audit      domain.AuditSink
	Permission domain.PackPermissionFunc
	Logger     *slog.Logger
}

// Router receives named tool invocations and dispatches them through three
// resolution tiers: core handlers, registered pack handlers, then the legacy
// name translator. Every path produces a uniform Envelope; handler failures
// never escape as raw errors.
type Router struct {
	registry *Registry
	limiter  *Limiter
	packs    domain.PackStore
	callers  domain.CallerDirectory
	legacy   domain.LegacyTranslator
	audit    domain.AuditSink
	permFn   domain.PackPermissionFunc
	logger   *slog.Logger
	now      func() time.Time // for testing
}

// New creates a Router.
func New(deps Deps) *Router {
	return &Router{
		registry: deps.Registry,
		limiter:  deps.Limiter,
		packs:    deps.Packs,
		callers:  deps.Callers,
		legacy:   deps.Legacy,
		audit:    deps.Audit,
		permFn:   deps.Permission,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Registry exposes the router's tool registry for pack bootstrap code and
// discovery endpoints.
func (r *Router) Registry() *Registry { return r.registry }

// Reset clears pack registrations. Test isolation hook.
func (r *Router) Reset() { r.registry.Reset() }

// newCorrelationID returns a fresh per-request ULID.
func newCorrelationID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Route handles one tool invocation end to end: caller resolution, rate
// check, audit start, tiered dispatch, audit end, rate increment. callerID 0
// means "resolve from ambient context"; only the public tool may run without
// a resolved caller.
func (r *Router) Route(ctx context.Context, toolName string, params map[string]any, callerID int64) *domain.Envelope {
	corrID := newCorrelationID(r.now())

	ctx, span := tracer.StartSpan(ctx, "router.route",
		trace.WithAttributes(
			tracer.StringAttr("tool.name", toolName),
			tracer.StringAttr("correlation_id", corrID),
		),
	)
	defer span.End()

	if callerID == 0 && r.callers != nil {
		callerID = r.callers.CurrentCallerID(ctx)
	}

	if callerID <= 0 && toolName != PublicTool {
		r.logger.Error("unauthenticated tool call rejected",
			"correlation_id", corrID, "tool", toolName)
		r.emit(ctx, domain.AuditEvent{
			Timestamp:     r.now().UTC(),
			Type:          domain.AuditAuthDenied,
			CorrelationID: corrID,
			Tool:          toolName,
		})
		tracer.RecordError(span, domain.ErrAuthInvalid)
		return domain.Fail(domain.ErrKindAuth, "authentication required")
	}

	if res := r.limiter.Check(ctx, callerID); !res.Allowed {
		r.logger.Warn("tool call rate limited",
			"correlation_id", corrID, "tool", toolName,
			"caller_id", callerID, "limit", res.Limit, "retry_after", res.RetryAfter)
		r.emit(ctx, domain.AuditEvent{
			Timestamp:     r.now().UTC(),
			Type:          domain.AuditRateLimited,
			CorrelationID: corrID,
			Tool:          toolName,
			CallerID:      callerID,
			Detail:        map[string]any{"limit": res.Limit, "retry_after": res.RetryAfter},
		})
		tracer.RecordError(span, domain.ErrRateLimit)
		// Rejected before being counted: no increment on this path.
		return domain.FailDetail(domain.ErrKindRateLimit,
			fmt.Sprintf("rate limit of %d requests per window exceeded", res.Limit),
			map[string]any{"retry_after": res.RetryAfter, "limit": res.Limit})
	}

	r.emit(ctx, domain.AuditEvent{
		Timestamp:     r.now().UTC(),
		Type:          domain.AuditRequestStart,
		CorrelationID: corrID,
		Tool:          toolName,
		CallerID:      callerID,
		Detail:        map[string]any{"params": Redact(params)},
	})

	env := r.dispatch(ctx, corrID, toolName, params, callerID)

	success := env.Success
	r.emit(ctx, domain.AuditEvent{
		Timestamp:     r.now().UTC(),
		Type:          domain.AuditRequestEnd,
		CorrelationID: corrID,
		Tool:          toolName,
		CallerID:      callerID,
		Success:       &success,
	})
	if !success {
		tracer.RecordError(span, fmt.Errorf("%s: %s", env.Error.Kind, env.Error.Message))
	} else {
		tracer.SetOK(span)
	}

	// Successful and failed dispatches both count; only the pre-dispatch
	// rate rejection above goes uncounted.
	r.limiter.Increment(ctx, callerID)

	return env
}

// dispatch resolves toolName through the three tiers, first match wins.
// Panics and handler errors are contained here and converted to
// internal_error envelopes.
func (r *Router) dispatch(ctx context.Context, corrID, toolName string, params map[string]any, callerID int64) (env *domain.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked",
				"correlation_id", corrID, "tool", toolName, "panic", rec)
			env = r.internalError(ctx, corrID, toolName, fmt.Errorf("panic: %v", rec))
		}
	}()

	// Core tier.
	if h, ok := r.registry.Core(toolName); ok {
		e, err := h.Invoke(ctx, params, callerID)
		if err != nil {
			return r.internalError(ctx, corrID, toolName, err)
		}
		return e
	}

	// Pack tier.
	if pack, h, ok := r.registry.PackTool(toolName); ok {
		if !r.packs.IsActive(ctx, pack) {
			return domain.FailDetail(domain.ErrKindPermission,
				fmt.Sprintf("tool %q belongs to pack %q, which is not activated", toolName, pack),
				map[string]any{"pack": pack, "hint": "activate the pack to enable its tools"})
		}
		if !r.packAllows(ctx, pack, callerID) {
			return domain.FailDetail(domain.ErrKindPermission,
				fmt.Sprintf("caller is not permitted to use pack %q", pack),
				map[string]any{"pack": pack})
		}
		if h == nil {
			return r.internalError(ctx, corrID, toolName, domain.ErrHandlerInvalid)
		}
		e, err := h.Invoke(ctx, params, callerID)
		if err != nil {
			return r.internalError(ctx, corrID, toolName, err)
		}
		return e
	}

	// Legacy tier.
	if r.legacy != nil {
		result, err := r.legacy.TranslateAndExecute(ctx, toolName, params, callerID)
		if err != nil {
			return r.internalError(ctx, corrID, toolName, err)
		}
		if result != nil {
			return domain.OK(result)
		}
	}

	return domain.FailDetail(domain.ErrKindUnknownTool,
		fmt.Sprintf("unknown tool %q", toolName),
		map[string]any{"available": r.registry.Names()})
}

// packAllows evaluates the pack's access policy for the caller: role
// allow-list first when configured, then the host's extensibility predicate
// with the allow-list verdict as its default.
func (r *Router) packAllows(ctx context.Context, pack string, callerID int64) bool {
	allowed := true
	if cfg, err := r.packs.ConfigFor(ctx, pack); err == nil && len(cfg.AllowedRoles) > 0 {
		allowed = false
		var roles []domain.Role
		if r.callers != nil {
			roles = r.callers.RolesOf(ctx, callerID)
		}
		for _, want := range cfg.AllowedRoles {
			if domain.HasRole(roles, want) {
				allowed = true
				break
			}
		}
	}
	if r.permFn != nil {
		allowed = r.permFn(allowed, pack, callerID)
	}
	return allowed
}

func (r *Router) internalError(ctx context.Context, corrID, toolName string, err error) *domain.Envelope {
	r.logger.Error("tool dispatch failed",
		"correlation_id", corrID, "tool", toolName, "error", err)
	r.emit(ctx, domain.AuditEvent{
		Timestamp:     r.now().UTC(),
		Type:          domain.AuditDispatchFail,
		CorrelationID: corrID,
		Tool:          toolName,
		Detail:        map[string]any{"error": err.Error()},
	})
	return domain.FailDetail(domain.ErrKindInternal,
		fmt.Sprintf("tool %q failed: %s", toolName, err.Error()),
		map[string]any{"tool": toolName})
}

func (r *Router) emit(ctx context.Context, event domain.AuditEvent) {
	if r.audit == nil {
		return
	}
	r.audit.Emit(ctx, event)
}
