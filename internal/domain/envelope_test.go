package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKEnvelope(t *testing.T) {
	env := OK(map[string]any{"post_id": int64(7)})
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, int64(7), env.Payload["post_id"])
}

func TestFailEnvelope(t *testing.T) {
	env := Fail(ErrKindRateLimit, "too many requests")
	assert.False(t, env.Success)
	assert.Nil(t, env.Payload)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrKindRateLimit, env.Error.Kind)
	assert.Equal(t, "too many requests", env.Error.Message)
}

func TestFailDetailEnvelope(t *testing.T) {
	env := FailDetail(ErrKindUnknownTool, "no such tool", map[string]any{
		"available": []string{"health_check"},
	})
	require.NotNil(t, env.Error)
	assert.Equal(t, []string{"health_check"}, env.Error.Detail["available"])
}

func TestEnvelopeJSONOmitsUnsetHalf(t *testing.T) {
	data, err := json.Marshal(Fail(ErrKindAuth, "denied"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "payload")
	assert.Contains(t, raw, "error")

	data, err = json.Marshal(OK(map[string]any{"n": 1}))
	require.NoError(t, err)
	raw = nil
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "error")
}

func TestHasRole(t *testing.T) {
	roles := []Role{RoleEditor, RolePremium}
	assert.True(t, HasRole(roles, RolePremium))
	assert.False(t, HasRole(roles, RoleAdministrator))
	assert.False(t, HasRole(nil, RoleEditor))
}

func TestCallerIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithCallerID(context.Background(), 42)
	assert.Equal(t, int64(42), CallerIDFromContext(ctx))
	assert.Zero(t, CallerIDFromContext(context.Background()))
}

func TestHandlerFuncAdapts(t *testing.T) {
	h := HandlerFunc{
		ToolName: "ping",
		Fn: func(_ context.Context, _ map[string]any, callerID int64) (*Envelope, error) {
			return OK(map[string]any{"caller": callerID}), nil
		},
	}
	assert.Equal(t, "ping", h.Name())
	assert.Equal(t, "ping", h.Schema().Name)

	env, err := h.Invoke(context.Background(), nil, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), env.Payload["caller"])
}
