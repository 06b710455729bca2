package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/adapter/counterstore"
	"toolgate/internal/domain"
	"toolgate/internal/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePackStore struct {
	active map[string]bool
}

func (p *fakePackStore) IsActive(_ context.Context, pack string) bool { return p.active[pack] }

func (p *fakePackStore) ConfigFor(context.Context, string) (*domain.PackConfig, error) {
	return nil, domain.ErrPackNotFound
}

type fakeDirectory struct{}

func (fakeDirectory) CurrentCallerID(ctx context.Context) int64 {
	return domain.CallerIDFromContext(ctx)
}
func (fakeDirectory) RolesOf(context.Context, int64) []domain.Role     { return nil }
func (fakeDirectory) RateOverrideOf(context.Context, int64) (int, bool) { return 0, false }

func echoTool(name string) domain.ToolHandler {
	return domain.HandlerFunc{
		ToolName: name,
		Fn: func(_ context.Context, params map[string]any, callerID int64) (*domain.Envelope, error) {
			return domain.OK(map[string]any{"tool": name, "caller_id": callerID}), nil
		},
	}
}

func newTestServer(t *testing.T) (*Server, *fakePackStore) {
	t.Helper()

	log := testLogger()
	packs := &fakePackStore{active: map[string]bool{"seo": true}}
	registry := router.NewRegistry([]domain.ToolHandler{
		echoTool("health_check"),
		echoTool("create_post"),
	}, nil)
	registry.RegisterPackTool("seo_audit", "seo", echoTool("seo_audit"))

	rt := router.New(router.Deps{
		Registry: registry,
		Limiter:  router.NewLimiter(counterstore.NewMemory(), fakeDirectory{}, 60, time.Minute, log),
		Packs:    packs,
		Callers:  fakeDirectory{},
		Logger:   log,
	})

	srv := NewServer(nil, NewStaticTokenAuth(nil), ServerOptions{Addr: "127.0.0.1:0"}, log)
	RegisterRPCHandlers(srv, HandlerDeps{Router: rt, Packs: packs, Logger: log})
	return srv, packs
}

func callRPC(t *testing.T, srv *Server, method string, client *ClientInfo, payload any) (json.RawMessage, error) {
	t.Helper()
	srv.handlersMu.RLock()
	handler, ok := srv.handlers[method]
	srv.handlersMu.RUnlock()
	require.True(t, ok, "method %q not registered", method)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return handler(context.Background(), client, data)
}

func TestToolsCall_RunsThroughRouter(t *testing.T) {
	srv, _ := newTestServer(t)
	client := &ClientInfo{Name: "agent", CallerID: 5}

	raw, err := callRPC(t, srv, "tools.call", client, map[string]any{
		"tool":   "create_post",
		"params": map[string]any{"title": "hi"},
	})
	require.NoError(t, err)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.True(t, env.Success)
	assert.Equal(t, "create_post", env.Payload["tool"])
	assert.Equal(t, float64(5), env.Payload["caller_id"])
}

func TestToolsCall_ToolFailureStaysInEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	client := &ClientInfo{Name: "agent", CallerID: 5}

	raw, err := callRPC(t, srv, "tools.call", client, map[string]any{"tool": "nope"})
	require.NoError(t, err, "tool failures are envelope errors, not transport errors")

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.False(t, env.Success)
	assert.Equal(t, domain.ErrKindUnknownTool, env.Error.Kind)
}

func TestToolsCall_AnonymousClientGetsAuthError(t *testing.T) {
	srv, _ := newTestServer(t)
	client := &ClientInfo{Name: "anon", CallerID: 0}

	raw, err := callRPC(t, srv, "tools.call", client, map[string]any{"tool": "create_post"})
	require.NoError(t, err)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.False(t, env.Success)
	assert.Equal(t, domain.ErrKindAuth, env.Error.Kind)

	// The public tool still works.
	raw, err = callRPC(t, srv, "tools.call", client, map[string]any{"tool": "health_check"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.True(t, env.Success)
}

func TestToolsCall_InvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	client := &ClientInfo{Name: "agent", CallerID: 5}

	_, err := callRPC(t, srv, "tools.call", client, map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRPCInvalidPayload))
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(t)

	raw, err := callRPC(t, srv, "tools.list", &ClientInfo{CallerID: 5}, nil)
	require.NoError(t, err)

	var resp struct {
		Count int               `json:"count"`
		Tools []domain.ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, 3, resp.Count)
}

func TestPacksStatus(t *testing.T) {
	srv, packs := newTestServer(t)

	raw, err := callRPC(t, srv, "packs.status", &ClientInfo{CallerID: 5}, nil)
	require.NoError(t, err)

	var resp struct {
		Packs []domain.PackStatus `json:"packs"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Len(t, resp.Packs, 1)
	assert.Equal(t, domain.PackStatus{Name: "seo", Active: true, ToolCount: 1}, resp.Packs[0])

	// Activation flips show up immediately.
	packs.active["seo"] = false
	raw, err = callRPC(t, srv, "packs.status", &ClientInfo{CallerID: 5}, nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.False(t, resp.Packs[0].Active)
}
