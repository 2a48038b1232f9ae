// Package routing administers the per-tenant location routing document. Every
// mutation is a read-modify-write under a row lock.
package routing

import (
	"context"
	"errors"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type Store interface {
	GetRoutingConfig(ctx context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error)
	UpdateRoutingConfig(ctx context.Context, tenantID uuid.UUID, fn func(*domain.RoutingConfig) error) (domain.RoutingConfig, error)
}

type Service struct {
	store  Store
	agents ports.AgentDirectory
	log    *logger.Logger
}

func New(store Store, agents ports.AgentDirectory, log *logger.Logger) *Service {
	return &Service{store: store, agents: agents, log: log}
}

// Get returns the tenant's document, or an empty active one when none exists yet.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error) {
	cfg, err := s.store.GetRoutingConfig(ctx, tenantID)
	if errors.Is(err, repository.ErrRoutingConfigNotFound) {
		return domain.NewRoutingConfig(tenantID), nil
	}
	return cfg, err
}

func (s *Service) SetActive(ctx context.Context, tenantID uuid.UUID, active bool) (domain.RoutingConfig, error) {
	return s.store.UpdateRoutingConfig(ctx, tenantID, func(cfg *domain.RoutingConfig) error {
		cfg.Active = active
		return nil
	})
}

func (s *Service) AddLocation(ctx context.Context, tenantID uuid.UUID, city string) (domain.RoutingConfig, error) {
	if domain.CityKey(city) == "" {
		return domain.RoutingConfig{}, apperr.Validation("city is required")
	}
	cfg, err := s.store.UpdateRoutingConfig(ctx, tenantID, func(cfg *domain.RoutingConfig) error {
		cfg.AddLocation(city)
		return nil
	})
	if err == nil {
		s.log.Info("routing_location_added", "tenantId", tenantID.String(), "city", domain.CityKey(city))
	}
	return cfg, err
}

func (s *Service) RemoveLocation(ctx context.Context, tenantID uuid.UUID, city string) (domain.RoutingConfig, error) {
	return s.store.UpdateRoutingConfig(ctx, tenantID, func(cfg *domain.RoutingConfig) error {
		if !cfg.RemoveLocation(city) {
			return apperr.NotFound("location not configured")
		}
		return nil
	})
}

// AddUser adds an active agent of the tenant to the routing pool.
func (s *Service) AddUser(ctx context.Context, tenantID, userID uuid.UUID) (domain.RoutingConfig, error) {
	agent, err := s.agents.GetAgent(ctx, tenantID, userID)
	if err != nil {
		return domain.RoutingConfig{}, apperr.NotFound("user not found")
	}
	if !agent.Active {
		return domain.RoutingConfig{}, apperr.Validation("user is not active")
	}

	cfg, err := s.store.UpdateRoutingConfig(ctx, tenantID, func(cfg *domain.RoutingConfig) error {
		cfg.AddUser(agent.ID, agent.Name)
		return nil
	})
	if err == nil {
		s.log.Info("routing_user_added", "tenantId", tenantID.String(), "userId", userID.String())
	}
	return cfg, err
}

func (s *Service) RemoveUser(ctx context.Context, tenantID, userID uuid.UUID) (domain.RoutingConfig, error) {
	return s.store.UpdateRoutingConfig(ctx, tenantID, func(cfg *domain.RoutingConfig) error {
		if !cfg.RemoveUser(userID) {
			return apperr.NotFound("user not in routing pool")
		}
		return nil
	})
}

// NextUser reports which pool member location routing would pick next, without
// consuming the turn.
func (s *Service) NextUser(ctx context.Context, tenantID uuid.UUID) (domain.RoutedUser, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return domain.RoutedUser{}, err
	}
	idx := cfg.NextUserIndex(nil)
	if idx < 0 {
		return domain.RoutedUser{}, apperr.NotFound("no active user in routing pool")
	}
	return cfg.AssignedUsers[idx], nil
}

// ByCity returns the document when it is active and routes city.
func (s *Service) ByCity(ctx context.Context, tenantID uuid.UUID, city string) (domain.RoutingConfig, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return domain.RoutingConfig{}, err
	}
	if !cfg.Serves(city) {
		return domain.RoutingConfig{}, apperr.NotFound("city is not routed")
	}
	return cfg, nil
}
