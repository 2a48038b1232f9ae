// Package management serves read access to leads for the API.
package management

import (
	"context"
	"errors"
	"strings"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

const leadNotFoundMsg = "lead not found"

// Repository is the read side management needs.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	FindByExternalContactID(ctx context.Context, tenantID uuid.UUID, externalID string) (domain.Lead, error)
	FindLatestByPhoneKey(ctx context.Context, tenantID uuid.UUID, key string) (domain.Lead, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	return lead, err
}

// Lookup finds the lead an inbound contact would match, without creating or
// updating anything. The external id wins over the phone.
func (s *Service) Lookup(ctx context.Context, tenantID uuid.UUID, externalContactID, rawPhone string) (domain.Lead, error) {
	if id := strings.TrimSpace(externalContactID); id != "" {
		lead, err := s.repo.FindByExternalContactID(ctx, tenantID, id)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, err
		}
	}

	key := phone.MatchKey(rawPhone)
	if key == "" {
		return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	lead, err := s.repo.FindLatestByPhoneKey(ctx, tenantID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	return lead, err
}
