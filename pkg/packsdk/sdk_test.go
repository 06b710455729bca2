package packsdk

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_Metadata(t *testing.T) {
	schema := json.RawMessage(`{"type":"object"}`)
	tool := Tool("seo_audit", "Runs an SEO audit", schema,
		func(_ context.Context, _ map[string]any, _ int64) (*Envelope, error) {
			return OK(nil), nil
		})

	assert.Equal(t, "seo_audit", tool.Name())
	assert.Equal(t, "Runs an SEO audit", tool.Description())

	s := tool.Schema()
	assert.Equal(t, "seo_audit", s.Name)
	assert.JSONEq(t, `{"type":"object"}`, string(s.Parameters))
}

func TestTool_InvokePassesThrough(t *testing.T) {
	tool := Tool("echo", "", nil,
		func(_ context.Context, params map[string]any, callerID int64) (*Envelope, error) {
			return OK(map[string]any{"msg": params["msg"], "caller": callerID}), nil
		})

	env, err := tool.Invoke(context.Background(), map[string]any{"msg": "hi"}, 7)
	require.NoError(t, err)
	require.True(t, env.Success)
	assert.Equal(t, "hi", env.Payload["msg"])
	assert.Equal(t, int64(7), env.Payload["caller"])
}

func TestEnvelopeBuilders(t *testing.T) {
	ok := OK(map[string]any{"n": 1})
	assert.True(t, ok.Success)

	fail := Fail(ErrKindPermission, "nope")
	require.NotNil(t, fail.Error)
	assert.Equal(t, ErrKindPermission, fail.Error.Kind)

	detail := FailDetail(ErrKindValidation, "bad input", map[string]any{"field": "title"})
	require.NotNil(t, detail.Error)
	assert.Equal(t, "title", detail.Error.Detail["field"])
}

func TestReExportedKindsMatchWireValues(t *testing.T) {
	assert.Equal(t, ErrorKind("auth_error"), ErrKindAuth)
	assert.Equal(t, ErrorKind("rate_limit"), ErrKindRateLimit)
	assert.Equal(t, ErrorKind("validation_error"), ErrKindValidation)
	assert.Equal(t, ErrorKind("permission_error"), ErrKindPermission)
	assert.Equal(t, ErrorKind("not_found"), ErrKindNotFound)
	assert.Equal(t, ErrorKind("internal_error"), ErrKindInternal)
	assert.Equal(t, ErrorKind("unknown_tool"), ErrKindUnknownTool)
}
