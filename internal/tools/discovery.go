package tools

import (
	"context"
	"encoding/json"

	"toolgate/internal/domain"
)

// registryLister is the slice of the registry the discovery tool needs.
type registryLister interface {
	List(ctx context.Context, packs domain.PackStore) []domain.ToolInfo
}

// ListToolsTool reports every registered tool and its availability. The
// router does not consult it for dispatch; it exists for agents that want to
// introspect the surface before calling.
type ListToolsTool struct {
	registry registryLister
	packs    domain.PackStore
}

func NewListToolsTool(registry registryLister, packs domain.PackStore) *ListToolsTool {
	return &ListToolsTool{registry: registry, packs: packs}
}

func (t *ListToolsTool) Name() string        { return "list_tools" }
func (t *ListToolsTool) Description() string { return "List all registered tools and their availability." }

func (t *ListToolsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(`{"type":"object","additionalProperties":false}`),
	}
}

func (t *ListToolsTool) Invoke(ctx context.Context, _ map[string]any, _ int64) (*domain.Envelope, error) {
	infos := t.registry.List(ctx, t.packs)
	items := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		item := map[string]any{
			"name":      info.Name,
			"tier":      string(info.Tier),
			"available": info.Available,
		}
		if info.Pack != "" {
			item["pack"] = info.Pack
		}
		items = append(items, item)
	}
	return domain.OK(map[string]any{"count": len(items), "tools": items}), nil
}
