package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"toolgate/internal/domain"
	"toolgate/internal/router"
)

// HandlerDeps holds dependencies needed by RPC handlers.
type HandlerDeps struct {
	Router *router.Router
	Packs  domain.PackStore
	Logger *slog.Logger
}

// toolCallParams is the payload of a tools.call request.
type toolCallParams struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// RegisterRPCHandlers installs the gateway RPC methods on the server.
//
// tools.call runs a tool through the router; the response payload is always
// an envelope, so transport errors stay distinct from tool failures.
// tools.list and packs.status are read-only discovery methods.
func RegisterRPCHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler("tools.call", func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var p toolCallParams
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrRPCInvalidPayload, err)
		}
		if p.Tool == "" {
			return nil, fmt.Errorf("%w: tool is required", domain.ErrRPCInvalidPayload)
		}

		env := deps.Router.Route(ctx, p.Tool, p.Params, client.CallerID)
		return json.Marshal(env)
	})

	s.RegisterHandler("tools.list", func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		infos := deps.Router.Registry().List(ctx, deps.Packs)
		return json.Marshal(map[string]any{"count": len(infos), "tools": infos})
	})

	s.RegisterHandler("packs.status", func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		statuses := deps.Router.Registry().PacksStatus(ctx, deps.Packs)
		return json.Marshal(map[string]any{"packs": statuses})
	})
}
