// Package packstore provides pack-configuration backends: a config-declared
// static store and a SQLite-persisted one. Both implement domain.PackStore.
package packstore

import (
	"context"
	"sync"

	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
)

type staticEntry struct {
	active bool
	cfg    domain.PackConfig
}

// Static serves pack state declared in the config file. Activation can still
// be flipped at runtime (admin RPC), but changes do not survive restarts.
type Static struct {
	mu    sync.RWMutex
	packs map[string]staticEntry
}

// NewStatic builds a store from the config's pack declarations.
func NewStatic(declared []config.StaticPack) *Static {
	s := &Static{packs: make(map[string]staticEntry, len(declared))}
	for _, p := range declared {
		roles := make([]domain.Role, 0, len(p.AllowedRoles))
		for _, r := range p.AllowedRoles {
			roles = append(roles, domain.Role(r))
		}
		s.packs[p.Name] = staticEntry{
			active: p.Active,
			cfg:    domain.PackConfig{AllowedRoles: roles},
		}
	}
	return s
}

func (s *Static) IsActive(_ context.Context, pack string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packs[pack].active
}

func (s *Static) ConfigFor(_ context.Context, pack string) (*domain.PackConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.packs[pack]
	if !ok {
		return nil, domain.NewDomainError("Static.ConfigFor", domain.ErrPackNotFound, pack)
	}
	cfg := e.cfg
	return &cfg, nil
}

// SetActive flips a pack's activation flag, creating the entry if needed.
func (s *Static) SetActive(pack string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.packs[pack]
	e.active = active
	s.packs[pack] = e
}
