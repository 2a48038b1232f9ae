package leadstest

import (
	"context"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func cloneRouting(cfg domain.RoutingConfig) domain.RoutingConfig {
	out := cfg
	out.Locations = make(map[string]domain.RoutedLocation, len(cfg.Locations))
	for k, v := range cfg.Locations {
		out.Locations[k] = v
	}
	out.AssignedUsers = append([]domain.RoutedUser{}, cfg.AssignedUsers...)
	return out
}

// PutRoutingConfig stores cfg as the tenant's routing document.
func (s *Store) PutRoutingConfig(cfg domain.RoutingConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routing[cfg.TenantID] = cloneRouting(cfg)
}

func (s *Store) GetRoutingConfig(_ context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.routing[tenantID]
	if !ok {
		return domain.RoutingConfig{}, repository.ErrRoutingConfigNotFound
	}
	return cloneRouting(cfg), nil
}

func (s *Store) SaveRoutingConfig(_ context.Context, cfg domain.RoutingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveRoutingErr != nil {
		return s.SaveRoutingErr
	}
	s.routing[cfg.TenantID] = cloneRouting(cfg)
	return nil
}

func (s *Store) UpdateRoutingConfig(_ context.Context, tenantID uuid.UUID, fn func(*domain.RoutingConfig) error) (domain.RoutingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.routing[tenantID]
	if !ok {
		cfg = domain.NewRoutingConfig(tenantID)
	}
	cfg = cloneRouting(cfg)
	if err := fn(&cfg); err != nil {
		return domain.RoutingConfig{}, err
	}
	s.routing[tenantID] = cloneRouting(cfg)
	return cfg, nil
}
