package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"toolgate/internal/domain"
)

// schemaValidatingHandler wraps a ToolHandler with JSON Schema validation.
// On Invoke, params are validated against the compiled schema before the
// inner handler runs; failures surface as validation_error envelopes.
type schemaValidatingHandler struct {
	inner  domain.ToolHandler
	schema *jsonschema.Schema
}

// WithSchemaValidation wraps a handler so that Invoke validates params
// against the handler's declared JSON Schema. Handlers without a schema are
// returned unwrapped. Returns error if the schema fails to compile.
func WithSchemaValidation(t domain.ToolHandler) (domain.ToolHandler, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}

	return &schemaValidatingHandler{inner: t, schema: compiled}, nil
}

func (s *schemaValidatingHandler) Name() string              { return s.inner.Name() }
func (s *schemaValidatingHandler) Description() string       { return s.inner.Description() }
func (s *schemaValidatingHandler) Schema() domain.ToolSchema { return s.inner.Schema() }

func (s *schemaValidatingHandler) Invoke(ctx context.Context, params map[string]any, callerID int64) (*domain.Envelope, error) {
	// Round-trip through JSON so the validator sees plain decoded values.
	data, err := json.Marshal(params)
	if err != nil {
		return domain.Fail(domain.ErrKindValidation, fmt.Sprintf("invalid params: %v", err)), nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Fail(domain.ErrKindValidation, fmt.Sprintf("invalid params: %v", err)), nil
	}

	if err := s.schema.Validate(v); err != nil {
		return domain.Fail(domain.ErrKindValidation, fmt.Sprintf("schema validation failed: %v", err)), nil
	}

	return s.inner.Invoke(ctx, params, callerID)
}
