package router

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"toolgate/internal/domain"
)

type packEntry struct {
	pack    string
	handler domain.ToolHandler
}

// Registry holds the fixed core tool set and the mutable pack tool set.
// Core entries are installed at construction and never change; pack entries
// are added by pack bootstrap code during initialization.
type Registry struct {
	mu     sync.RWMutex
	core   map[string]domain.ToolHandler
	packs  map[string]packEntry
	logger *slog.Logger
}

// NewRegistry creates a registry seeded with the built-in core tools.
// If logger is non-nil, each core tool is wrapped with JSON Schema param
// validation; compilation errors are logged and the tool registered unwrapped.
func NewRegistry(core []domain.ToolHandler, logger *slog.Logger) *Registry {
	r := &Registry{
		core:   make(map[string]domain.ToolHandler, len(core)),
		packs:  make(map[string]packEntry),
		logger: logger,
	}
	for _, t := range core {
		if logger != nil {
			wrapped, err := WithSchemaValidation(t)
			if err != nil {
				logger.Warn("schema validation disabled for tool",
					"tool", t.Name(), "error", err)
			} else {
				t = wrapped
			}
		}
		r.core[t.Name()] = t
	}
	return r
}

// Core looks up a built-in tool.
func (r *Registry) Core(name string) (domain.ToolHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.core[name]
	return t, ok
}

// PackTool looks up a pack tool and its owning pack.
func (r *Registry) PackTool(name string) (pack string, handler domain.ToolHandler, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.packs[name]
	return e.pack, e.handler, ok
}

// RegisterPackTool installs handler under name for the given pack,
// overwriting any prior pack registration of the same name. Core names are
// never overwritten: dispatch checks the core tier first, so a pack entry
// shadowing a core name is simply unreachable.
func (r *Registry) RegisterPackTool(name, pack string, handler domain.ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packs[name] = packEntry{pack: pack, handler: handler}
}

// RegisterPack installs every handler in tools under the given pack.
func (r *Registry) RegisterPack(pack string, tools map[string]domain.ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, h := range tools {
		r.packs[name] = packEntry{pack: pack, handler: h}
	}
}

// Names returns every currently known tool name (core and pack), sorted.
// Pack names are included regardless of their pack's activation state.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.core)+len(r.packs))
	for name := range r.core {
		names = append(names, name)
	}
	for name := range r.packs {
		if _, shadowed := r.core[name]; !shadowed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// List returns discovery entries for every tool. Core tools are always
// available; pack tools report the current activation state of their pack,
// read through the store so flag changes take effect immediately.
func (r *Registry) List(ctx context.Context, packs domain.PackStore) []domain.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.ToolInfo, 0, len(r.core)+len(r.packs))
	for name := range r.core {
		infos = append(infos, domain.ToolInfo{Name: name, Tier: domain.TierCore, Available: true})
	}
	for name, e := range r.packs {
		if _, shadowed := r.core[name]; shadowed {
			continue
		}
		active := packs != nil && packs.IsActive(ctx, e.pack)
		infos = append(infos, domain.ToolInfo{Name: name, Tier: domain.TierPack, Pack: e.pack, Available: active})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// PacksStatus returns one entry per registered pack with its activation state
// and tool count.
func (r *Registry) PacksStatus(ctx context.Context, packs domain.PackStore) []domain.PackStatus {
	r.mu.RLock()
	counts := make(map[string]int)
	for _, e := range r.packs {
		counts[e.pack]++
	}
	r.mu.RUnlock()

	statuses := make([]domain.PackStatus, 0, len(counts))
	for pack, n := range counts {
		active := packs != nil && packs.IsActive(ctx, pack)
		statuses = append(statuses, domain.PackStatus{Name: pack, Active: active, ToolCount: n})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Reset clears all pack registrations, returning the registry to the
// core-only tool set. Test isolation hook.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packs = make(map[string]packEntry)
}
