package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
)

// staticSchemaTool is a handler with a fixed schema whose Invoke records the
// params it received.
type staticSchemaTool struct {
	name     string
	schema   string
	lastSeen map[string]any
}

func (s *staticSchemaTool) Name() string        { return s.name }
func (s *staticSchemaTool) Description() string { return "" }

func (s *staticSchemaTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Parameters: json.RawMessage(s.schema)}
}

func (s *staticSchemaTool) Invoke(_ context.Context, params map[string]any, _ int64) (*domain.Envelope, error) {
	s.lastSeen = params
	return domain.OK(map[string]any{"ran": true}), nil
}

func TestWithSchemaValidation_NoSchemaPassthrough(t *testing.T) {
	inner := &staticSchemaTool{name: "plain"}
	wrapped, err := WithSchemaValidation(inner)
	require.NoError(t, err)
	assert.Same(t, inner, wrapped, "handlers without a schema stay unwrapped")
}

func TestWithSchemaValidation_InvalidSchemaRejected(t *testing.T) {
	_, err := WithSchemaValidation(&staticSchemaTool{name: "bad", schema: `{"type": 42}`})
	assert.Error(t, err)
}

func TestWithSchemaValidation_RejectsBadParams(t *testing.T) {
	inner := &staticSchemaTool{
		name: "strict",
		schema: `{
			"type": "object",
			"required": ["title"],
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"count": {"type": "integer", "minimum": 1}
			},
			"additionalProperties": false
		}`,
	}
	wrapped, err := WithSchemaValidation(inner)
	require.NoError(t, err)

	cases := []struct {
		name   string
		params map[string]any
	}{
		{"missing required", map[string]any{}},
		{"wrong type", map[string]any{"title": 7}},
		{"extra property", map[string]any{"title": "x", "bogus": true}},
		{"below minimum", map[string]any{"title": "x", "count": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := wrapped.Invoke(context.Background(), tc.params, 1)
			require.NoError(t, err)
			require.False(t, env.Success)
			assert.Equal(t, domain.ErrKindValidation, env.Error.Kind)
			assert.Nil(t, inner.lastSeen, "inner handler must not run on invalid params")
		})
	}
}

func TestWithSchemaValidation_PassesValidParams(t *testing.T) {
	inner := &staticSchemaTool{
		name:   "strict",
		schema: `{"type":"object","required":["title"],"properties":{"title":{"type":"string"}}}`,
	}
	wrapped, err := WithSchemaValidation(inner)
	require.NoError(t, err)

	env, err := wrapped.Invoke(context.Background(), map[string]any{"title": "hello"}, 1)
	require.NoError(t, err)
	require.True(t, env.Success)
	assert.Equal(t, "hello", inner.lastSeen["title"])
}

func TestWithSchemaValidation_NumericParamsRoundTrip(t *testing.T) {
	// Params arriving as Go ints must validate against "integer" schemas.
	inner := &staticSchemaTool{
		name:   "nums",
		schema: `{"type":"object","properties":{"post_id":{"type":"integer"}}}`,
	}
	wrapped, err := WithSchemaValidation(inner)
	require.NoError(t, err)

	env, err := wrapped.Invoke(context.Background(), map[string]any{"post_id": 42}, 1)
	require.NoError(t, err)
	assert.True(t, env.Success)
}
